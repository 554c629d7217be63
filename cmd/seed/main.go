// cmd/seed/main.go
//
// Fills a running agent with fake notes through its local API. Notes created
// while the agent is offline are queued and replayed on reconnect, which
// makes this handy for exercising the sync path by hand.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"note-sync/internal/services/notes"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	baseURL   = flag.String("url", env("AGENT_URL", "http://localhost:8090"), "Agent base URL")
	nNotes    = flag.Int("n", envInt("COUNT", 50), "How many notes to create")
	seed      = flag.Int64("seed", 0, "Fake data seed (0 = random)")
	reminders = flag.Bool("reminders", false, "Give every third note a reminder")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func postJSON(client *http.Client, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func drain(body io.ReadCloser) []byte {
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

func main() {
	flag.Parse()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	faker := gofakeit.New(s)

	fmt.Printf("Seeding %d notes on %s (seed=%d)\n", *nNotes, *baseURL, s)

	queued, err := createNotes(&http.Client{Timeout: 10 * time.Second}, faker, *nNotes)
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	fmt.Printf("done, %d created offline and queued for sync\n", queued)
}

func fakeNote(faker *gofakeit.Faker, i int) notes.CreateNoteRequest {
	req := notes.CreateNoteRequest{
		Title:   faker.Sentence(3),
		Content: faker.Paragraph(1, 3, 40, "\n"),
	}
	if *reminders && i%3 == 0 {
		at := faker.FutureDate().UTC().Truncate(time.Minute)
		req.ReminderDatetime = &at
	}
	return req
}

// createNotes returns how many notes the agent had to create offline.
func createNotes(client *http.Client, faker *gofakeit.Faker, total int) (int, error) {
	queued := 0
	for i := 1; i <= total; i++ {
		resp, err := postJSON(client, "/api/v1/notes", fakeNote(faker, i))
		if err != nil {
			return queued, err
		}
		body := drain(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			return queued, fmt.Errorf("create note %d failed (%d): %s", i, resp.StatusCode, body)
		}

		var r notes.NoteResponse
		if err := json.Unmarshal(body, &r); err == nil && r.Note != nil && r.Note.IsOffline {
			queued++
		}

		if i%10 == 0 || i == total {
			fmt.Printf("  %d/%d\n", i, total)
		}
	}
	return queued, nil
}
