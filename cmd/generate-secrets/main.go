package main

import (
	"fmt"
	"log"

	"github.com/trekops/booking-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Admin Secret Generator for Trek Booking")
	fmt.Println("===========================================")
	fmt.Println()

	secrets, err := utils.GenerateAdminSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Give this secret to the admin panel operators:")
	fmt.Printf("ADMIN_SECRET=%s\n", secrets.AdminSecret)
	fmt.Println()
	fmt.Println("Add these to the server's .env file (the hash replaces ADMIN_SECRET there):")
	fmt.Printf("ADMIN_SECRET_HASH='%s'\n", secrets.AdminSecretHash)
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTSecret)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
