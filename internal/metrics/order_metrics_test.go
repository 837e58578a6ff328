package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := NewOrderMetrics()

	if metrics == nil {
		t.Fatal("NewOrderMetrics should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}

	if metrics.ordersCancelled == nil {
		t.Error("ordersCancelled counter should not be nil")
	}

	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}

	if metrics.ordersFailed == nil {
		t.Error("ordersFailed counter should not be nil")
	}

	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}

	if metrics.createDuration == nil {
		t.Error("createDuration histogram should not be nil")
	}

	if metrics.opDuration == nil {
		t.Error("opDuration histogram vec should not be nil")
	}

	if metrics.timelineEvents == nil {
		t.Error("timelineEvents counter should not be nil")
	}

	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}

	if metrics.activeOrders == nil {
		t.Error("activeOrders gauge should not be nil")
	}
}

func TestRecordOrderCreated(t *testing.T) {
	reg := prometheus.NewRegistry()

	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_orders_created_total",
		Help: "Test counter",
	})
	activeOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_active_orders",
		Help: "Test gauge",
	})

	reg.MustRegister(ordersCreated, activeOrders)

	metrics := &OrderMetrics{
		ordersCreated: ordersCreated,
		activeOrders:  activeOrders,
	}

	metrics.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := activeOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}

	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected active orders 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordOrderCancelled(t *testing.T) {
	reg := prometheus.NewRegistry()

	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_orders_cancelled_total",
		Help: "Test counter",
	})
	activeOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_active_orders_cancel",
		Help: "Test gauge",
	})

	reg.MustRegister(ordersCancelled, activeOrders)

	metrics := &OrderMetrics{
		ordersCancelled: ordersCancelled,
		activeOrders:    activeOrders,
	}

	activeOrders.Set(5)
	metrics.RecordOrderCancelled()

	metric := &dto.Metric{}
	if err := ordersCancelled.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := activeOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}

	if gaugeMetric.Gauge.GetValue() != 4.0 {
		t.Errorf("expected active orders 4.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordInsufficientStock(t *testing.T) {
	reg := prometheus.NewRegistry()

	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_insufficient_stock_total",
		Help: "Test counter",
	})

	reg.MustRegister(insufficientStock)

	metrics := &OrderMetrics{
		insufficientStock: insufficientStock,
	}

	metrics.RecordInsufficientStock()
	metrics.RecordInsufficientStock()

	metric := &dto.Metric{}
	if err := insufficientStock.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCreateDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	createDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_order_create_duration_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(createDuration)

	metrics := &OrderMetrics{
		createDuration: createDuration,
	}

	metrics.RecordCreateDuration(100 * time.Millisecond)
	metrics.RecordCreateDuration(500 * time.Millisecond)
	metrics.RecordCreateDuration(1 * time.Second)

	metric := &dto.Metric{}
	if err := createDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}

	sum := metric.Histogram.GetSampleSum()
	if sum < 1.5 || sum > 1.7 {
		t.Errorf("expected sum around 1.6, got %f", sum)
	}
}

func TestRecordOperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_order_operation_duration_seconds",
		Help:    "Test histogram vec",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"operation"})

	reg.MustRegister(opDuration)

	metrics := &OrderMetrics{
		opDuration: opDuration,
	}

	metrics.RecordOperationDuration("create", 50*time.Millisecond)
	metrics.RecordOperationDuration("cancel", 100*time.Millisecond)
	metrics.RecordOperationDuration("update_status", 25*time.Millisecond)

	createMetric := &dto.Metric{}
	observer := opDuration.WithLabelValues("create")
	if err := observer.(prometheus.Histogram).Write(createMetric); err != nil {
		t.Fatalf("failed to write create metric: %v", err)
	}

	if createMetric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample for create, got %d", createMetric.Histogram.GetSampleCount())
	}
}

func TestRecordTimelineAndOutboxEvents(t *testing.T) {
	reg := prometheus.NewRegistry()

	timelineEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_timeline_events_total",
		Help: "Test counter",
	})
	outboxEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_outbox_events_total",
		Help: "Test counter",
	})

	reg.MustRegister(timelineEvents, outboxEvents)

	metrics := &OrderMetrics{
		timelineEvents: timelineEvents,
		outboxEvents:   outboxEvents,
	}

	metrics.RecordTimelineEvent()
	metrics.RecordTimelineEvent()
	metrics.RecordTimelineEvent()
	metrics.RecordOutboxEvent()
	metrics.RecordOutboxEvent()

	metric := &dto.Metric{}
	if err := timelineEvents.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}

	outboxMetric := &dto.Metric{}
	if err := outboxEvents.Write(outboxMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if outboxMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", outboxMetric.Counter.GetValue())
	}
}

func TestOrderLifecycleGauge(t *testing.T) {
	reg := prometheus.NewRegistry()

	activeOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_order_lifecycle_active",
		Help: "Test gauge",
	})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_order_lifecycle_created",
		Help: "Test counter",
	})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_order_lifecycle_cancelled",
		Help: "Test counter",
	})

	reg.MustRegister(activeOrders, ordersCreated, ordersCancelled)

	metrics := &OrderMetrics{
		activeOrders:    activeOrders,
		ordersCreated:   ordersCreated,
		ordersCancelled: ordersCancelled,
	}

	metrics.RecordOrderCreated()   // active: 1
	metrics.RecordOrderCreated()   // active: 2
	metrics.RecordOrderCreated()   // active: 3
	metrics.RecordOrderDelivered() // active: 2
	metrics.RecordOrderCancelled() // active: 1

	gaugeMetric := &dto.Metric{}
	if err := activeOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}

	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected 1 active order, got %f", gaugeMetric.Gauge.GetValue())
	}

	createdMetric := &dto.Metric{}
	if err := ordersCreated.Write(createdMetric); err != nil {
		t.Fatalf("failed to write created metric: %v", err)
	}

	if createdMetric.Counter.GetValue() != 3.0 {
		t.Errorf("expected 3 created orders, got %f", createdMetric.Counter.GetValue())
	}
}
