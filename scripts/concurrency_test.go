//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the borrowing API.
//
// Usage:
//
//	STAFF_EMAIL=<email> STAFF_PASSWORD=<pw> go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid>  MEMBER_IDS=<uuid1>,<uuid2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Logs in once as a staff account and shares the session cookie.
//  2. Fires N goroutines (one per member) all attempting to borrow the same book simultaneously.
//  3. Prints how many borrowings were created vs. refused with "no copies available".
//  4. Reads the book back and checks that available copies never went negative.
//
// Prerequisites:
//   - Server must be running.
//   - At least 1 book with some copies and N active members must exist in the DB.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type checkoutResult struct {
	MemberID   string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var memberIDs []string
	if env := os.Getenv("MEMBER_IDS"); env != "" {
		memberIDs = strings.Split(env, ",")
	}

	// Support positional args: script <book_id> [member_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		memberIDs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> MEMBER_IDS=<m1,m2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <member1_id> [member2_id ...]")
	}
	if len(memberIDs) == 0 {
		log.Fatal("At least one member ID must be provided via MEMBER_IDS env or positional args")
	}

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}
	if err := login(client, serverAddr, os.Getenv("STAFF_EMAIL"), os.Getenv("STAFF_PASSWORD")); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	before, err := availableCopies(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Printf("=== Library Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Book      : %s (available %d)\n", bookID, before)
	fmt.Printf("Members   : %d\n\n", len(memberIDs))

	results := make([]checkoutResult, len(memberIDs))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, mid := range memberIDs {
		wg.Add(1)
		go func(idx int, memberID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptCheckout(client, serverAddr, bookID, strings.TrimSpace(memberID))
		}(i, mid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var created, refused, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] member=%-38s err=%v\n", r.MemberID, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [LOAN] member=%-38s status=%d\n", r.MemberID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			refused++
			fmt.Printf("  [FULL] member=%-38s status=%d %s\n", r.MemberID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] member=%-38s status=%d %s\n", r.MemberID, r.StatusCode, r.Message)
		}
	}

	after, err := availableCopies(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed  : %d\n", created)
	fmt.Printf("Refused   : %d\n", refused)
	fmt.Printf("Failures  : %d\n", failures)
	fmt.Printf("Available : %d -> %d\n\n", before, after)

	fmt.Println("--- Invariant Check ---")
	ok := after >= 0 && created <= before && before-created == after
	if ok {
		fmt.Println("OK: every borrowing took exactly one copy and the counter never went negative.")
	} else {
		fmt.Println("[VIOLATION] available copies do not match the borrowings created.")
	}

	if failures > 0 || !ok {
		os.Exit(1)
	}
}

func login(client *http.Client, serverAddr, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(serverAddr+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func availableCopies(client *http.Client, serverAddr, bookID string) (int, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/books/%s", serverAddr, bookID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, err
	}
	if !env.Success {
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	var book struct {
		AvailableCopies int `json:"availableCopies"`
	}
	if err := json.Unmarshal(env.Data, &book); err != nil {
		return 0, err
	}
	return book.AvailableCopies, nil
}

// attemptCheckout sends POST /api/borrowings for the given member, due in two weeks.
func attemptCheckout(client *http.Client, serverAddr, bookID, memberID string) checkoutResult {
	body, _ := json.Marshal(map[string]string{
		"bookId":   bookID,
		"memberId": memberID,
		"dueDate":  time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
	})

	resp, err := client.Post(serverAddr+"/api/borrowings", "application/json", bytes.NewReader(body))
	if err != nil {
		return checkoutResult{MemberID: memberID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return checkoutResult{MemberID: memberID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}
	return checkoutResult{MemberID: memberID, StatusCode: resp.StatusCode, Message: env.Message}
}
