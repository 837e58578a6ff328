package memory_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

func TestCustomerRepository_CreateDuplicateEmail(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewCustomerRepository(store)

	first, err := repo.Create(domain.Customer{Name: "Alice", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repo.Create(domain.Customer{Name: "Bob", Email: "a@b.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected directory unchanged, got %d customers", len(all))
	}

	stored, err := repo.GetByEmail("a@b.com")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if stored.ID != first.ID {
		t.Fatalf("expected first customer, got %s", stored.ID)
	}
}

func TestCustomerRepository_UpdateReChecksEmail(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewCustomerRepository(store)

	if _, err := repo.Create(domain.Customer{Name: "Alice", Email: "a@b.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	bob, err := repo.Create(domain.Customer{Name: "Bob", Email: "b@b.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	bob.Email = "a@b.com"
	if err := repo.Update(bob); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on update, got %v", err)
	}

	// Обновление без смены почты не должно упираться в собственную запись.
	bob.Email = "b@b.com"
	bob.Phone = "+1-555-0100"
	if err := repo.Update(bob); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestCustomerRepository_GetMissing(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewCustomerRepository(store)

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail("none@b.com"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}

	exists, err := repo.Exists("missing")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists to be false")
	}
}
