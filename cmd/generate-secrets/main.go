package main

import (
	"fmt"
	"log"

	"github.com/tripnest/booking-core/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for TripNest booking core")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, qrHashKey, err := utils.GenerateServiceSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("QR_HASH_KEY=%s\n", qrHashKey)
	fmt.Println()
	fmt.Println("IMPORTANT: Rotating QR_HASH_KEY invalidates every QR code that is still pending.")
	fmt.Println("Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
