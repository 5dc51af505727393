package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/wallyscope/pkg/httputil"
)

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return httputil.Retryable(errors.New("502 bad gateway"))
		}
		return nil
	})
	fmt.Println("Attempts:", attempts)
	fmt.Println("Error:", err)
	// Output:
	// Attempts: 3
	// Error: <nil>
}

func ExampleRetry_permanent() {
	attempts := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return errors.New("404 not found")
	})
	fmt.Println("Attempts:", attempts)
	fmt.Println("Error:", err)
	// Output:
	// Attempts: 1
	// Error: 404 not found
}
