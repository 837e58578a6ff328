package directory

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	store := memory.NewStore()
	return NewService(memory.NewCustomerRepository(store), log.New().WithField("test", t.Name()))
}

func seedCustomer(t *testing.T, svc Service, name, email string) domain.Customer {
	t.Helper()

	created, err := svc.Create(domain.Customer{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create customer %s: %v", email, err)
	}
	return created
}

func TestService_CreateValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(domain.Customer{Name: "  ", Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, domain.ErrCustomerNameRequired) {
		t.Errorf("expected ErrCustomerNameRequired in %v", err)
	}
	if !errors.Is(err, domain.ErrEmailInvalid) {
		t.Errorf("expected ErrEmailInvalid in %v", err)
	}
}

func TestService_CreateAndLookup(t *testing.T) {
	svc := newTestService(t)

	created := seedCustomer(t, svc, "Alice", "alice@example.com")
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	byID, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Fatalf("unexpected customer: %+v", byID)
	}

	byEmail, err := svc.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, byEmail.ID)
	}

	if _, err := svc.GetByEmail("nobody@example.com"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestService_EmailUniqueness(t *testing.T) {
	svc := newTestService(t)

	seedCustomer(t, svc, "Alice", "alice@example.com")

	_, err := svc.Create(domain.Customer{Name: "Imposter", Email: "alice@example.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict class error, got %v", err)
	}
}

func TestService_UpdateEmailConflict(t *testing.T) {
	svc := newTestService(t)

	alice := seedCustomer(t, svc, "Alice", "alice@example.com")
	bob := seedCustomer(t, svc, "Bob", "bob@example.com")

	// Смена почты на занятую не должна затирать чужую запись
	_, err := svc.Update(bob.ID, domain.Customer{Name: "Bob", Email: "alice@example.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	stillAlice, err := svc.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if stillAlice.ID != alice.ID || stillAlice.Name != "Alice" {
		t.Fatalf("alice record was clobbered: %+v", stillAlice)
	}

	stillBob, err := svc.Get(bob.ID)
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if stillBob.Email != "bob@example.com" {
		t.Fatalf("expected bob email unchanged, got %s", stillBob.Email)
	}
}

func TestService_UpdateFields(t *testing.T) {
	svc := newTestService(t)

	created := seedCustomer(t, svc, "Alice", "alice@example.com")

	updated, err := svc.Update(created.ID, domain.Customer{
		Name:    "Alice Cooper",
		Email:   "alice.cooper@example.com",
		Phone:   "+1-555-0100",
		Address: "42 Main St",
	})
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if updated.Name != "Alice Cooper" || updated.Email != "alice.cooper@example.com" {
		t.Fatalf("unexpected customer after update: %+v", updated)
	}
	if updated.Phone != "+1-555-0100" || updated.Address != "42 Main St" {
		t.Fatalf("expected contact fields updated, got %+v", updated)
	}

	// Старая почта освобождается
	if _, err := svc.GetByEmail("alice@example.com"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected old email to be released, got %v", err)
	}

	_, err = svc.Update("missing", domain.Customer{Name: "Ghost", Email: "ghost@example.com"})
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestService_DeleteAndExists(t *testing.T) {
	svc := newTestService(t)

	created := seedCustomer(t, svc, "Alice", "alice@example.com")

	exists, err := svc.Exists(created.ID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected customer to exist")
	}

	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}

	exists, err = svc.Exists(created.ID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected customer to be gone")
	}

	if err := svc.Delete(created.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound on repeated delete, got %v", err)
	}

	// Удаление освобождает почту для повторной регистрации
	if _, err := svc.Create(domain.Customer{Name: "Alice II", Email: "alice@example.com"}); err != nil {
		t.Fatalf("re-register freed email: %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc := newTestService(t)

	seedCustomer(t, svc, "Carol", "carol@example.com")
	seedCustomer(t, svc, "Alice", "alice@example.com")
	seedCustomer(t, svc, "Bob", "bob@example.com")

	customers, err := svc.List()
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	if len(customers) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(customers))
	}
	if customers[0].Name != "Alice" || customers[1].Name != "Bob" || customers[2].Name != "Carol" {
		t.Fatalf("expected name order, got %s, %s, %s", customers[0].Name, customers[1].Name, customers[2].Name)
	}
}
