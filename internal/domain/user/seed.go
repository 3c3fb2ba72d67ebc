package user

// SeedUsers returns the records every store is populated with at startup.
// A fresh slice is returned on each call so callers may keep it.
func SeedUsers() []User {
	return []User{
		{ID: 1, Name: "John Doe", Email: "john.doe@example.com"},
		{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com"},
	}
}
