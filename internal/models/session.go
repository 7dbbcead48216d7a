// internal/models/session.go
package models

// User is the logged-in dashboard user.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EmployeeID int    `json:"employee_id"`
}
