package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	// Verify tables exist by checking if we can query them
	tables := []string{"users", "links"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserModel(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{
		Email:        "test@example.com",
		PasswordHash: "hashed_password",
		Name:         "Test User",
		SystemRole:   SystemRoleUser,
	}

	result := db.Create(&user)
	if result.Error != nil {
		t.Fatalf("Failed to create user: %v", result.Error)
	}

	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	if user.HasPortalToken() {
		t.Error("Expected no portal token on a fresh user")
	}

	// Test unique email constraint
	user2 := User{
		Email:        "test@example.com",
		PasswordHash: "another_hash",
		Name:         "Another User",
	}
	result = db.Create(&user2)
	if result.Error == nil {
		t.Error("Expected error when creating user with duplicate email")
	}
}

func TestLinkKeyUniquenessPerOwner(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	alice := User{Email: "alice@example.com", PasswordHash: "hash", Name: "Alice"}
	db.Create(&alice)
	bob := User{Email: "bob@example.com", PasswordHash: "hash", Name: "Bob"}
	db.Create(&bob)

	link1 := Link{
		OwnerID:     alice.ID,
		Key:         "shared-key",
		Destination: "https://example1.com",
	}
	if err := db.Create(&link1).Error; err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}

	// Same owner, same key: rejected.
	link2 := Link{
		OwnerID:     alice.ID,
		Key:         "shared-key",
		Destination: "https://example2.com",
	}
	if err := db.Create(&link2).Error; err == nil {
		t.Error("Expected error when reusing a key under the same owner")
	}

	// Different owner, same key: allowed.
	link3 := Link{
		OwnerID:     bob.ID,
		Key:         "shared-key",
		Destination: "https://example3.com",
	}
	if err := db.Create(&link3).Error; err != nil {
		t.Errorf("Expected same key under a different owner to be allowed, got %v", err)
	}
}

func TestLinkDefaults(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Email: "test@example.com", PasswordHash: "hash", Name: "Test"}
	db.Create(&user)

	link := Link{
		OwnerID:     user.ID,
		Key:         "my-key",
		Destination: "https://example.com",
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}

	var loaded Link
	db.First(&loaded, link.ID)
	if loaded.Domain != "trfc.link" {
		t.Errorf("Expected default domain trfc.link, got %s", loaded.Domain)
	}
}

func TestLinkStatusToggle(t *testing.T) {
	if LinkStatusActive.Toggle() != LinkStatusInactive {
		t.Error("Expected active to toggle to inactive")
	}
	if LinkStatusInactive.Toggle() != LinkStatusActive {
		t.Error("Expected inactive to toggle to active")
	}
}

func TestShortURL(t *testing.T) {
	link := Link{Key: "my-key", Domain: "trfc.link"}
	if got := link.ShortURL(); got != "https://trfc.link/my-key" {
		t.Errorf("Expected https://trfc.link/my-key, got %s", got)
	}
}
