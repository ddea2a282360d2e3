// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package identity

import "github.com/ManuGH/leavegate/internal/auth"

// DemoPassword is shared by every demo account.
const DemoPassword = "password123"

// DemoUsers returns the built-in accounts used when no users file is
// configured. Every account uses DemoPassword.
func DemoUsers() ([]User, error) {
	hash, err := HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	return []User{
		{ID: "1", Name: "John Doe", Email: "john@student.edu", Role: auth.RoleStudent,
			HostelName: "Krishna Hostel", RoomNumber: "A-201", PasswordHash: hash},
		{ID: "2", Name: "Dr. Sarah Wilson", Email: "sarah@admin.edu", Role: auth.RoleWarden,
			HostelName: "Krishna Hostel", PasswordHash: hash},
		{ID: "3", Name: "Admin User", Email: "admin@admin.edu", Role: auth.RoleAdmin, PasswordHash: hash},
		{ID: "4", Name: "Robert Doe", Email: "robert@parent.edu", Role: auth.RoleParent,
			LinkedStudentID: "1", PasswordHash: hash},
	}, nil
}

// DemoDirectory builds a Directory from DemoUsers.
func DemoDirectory() (*Directory, error) {
	users, err := DemoUsers()
	if err != nil {
		return nil, err
	}
	return NewDirectory(users)
}
