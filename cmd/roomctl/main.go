// Package main provides the room control CLI entry point.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("roomctl", "roombox listening room client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	user   = app.Flag("user", "User ID sent as submitter").Envar("ROOMBOX_USER").Default("roomctl").String()

	// status command
	statusCmd = app.Command("status", "Show playback status")

	// queue command
	queueCmd = app.Command("queue", "Show the queue")

	// add command
	addCmd   = app.Command("add", "Search for a song and add it to the queue")
	addQuery = addCmd.Arg("query", "Search query").Required().Strings()

	// search command
	searchCmd   = app.Command("search", "Search for songs without queueing")
	searchQuery = searchCmd.Arg("query", "Search query").Required().Strings()

	// remove command
	removeCmd = app.Command("remove", "Remove a queue item by position (admin)")
	removePos = removeCmd.Arg("position", "Queue position").Required().Int64()

	// begin command
	beginCmd = app.Command("begin", "Start playback at the cursor")

	// skip command
	skipCmd = app.Command("skip", "Skip the current song")

	// pause command
	pauseCmd = app.Command("pause", "Toggle pause")

	// loop command
	loopCmd = app.Command("loop", "Toggle looping of the current song")

	// stop command
	stopCmd = app.Command("stop", "Stop playback and clear the queue (admin)")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case statusCmd.FullCommand():
		showStatus()
	case queueCmd.FullCommand():
		showQueue()
	case addCmd.FullCommand():
		add(strings.Join(*addQuery, " "))
	case searchCmd.FullCommand():
		search(strings.Join(*searchQuery, " "))
	case removeCmd.FullCommand():
		remove(*removePos)
	case beginCmd.FullCommand():
		simple(http.MethodPost, "/api/player/begin", "Playback started")
	case skipCmd.FullCommand():
		skip()
	case pauseCmd.FullCommand():
		pause()
	case loopCmd.FullCommand():
		loop()
	case stopCmd.FullCommand():
		simple(http.MethodPost, "/api/player/stop", "Playback stopped")
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
	Error   string          `json:"error"`
}

type songView struct {
	Name         string `json:"name"`
	Artist       string `json:"artist"`
	DurationSecs int    `json:"duration"`
	URL          string `json:"url"`
}

type queueItemView struct {
	Position    int64    `json:"position"`
	SubmitterID string   `json:"submitterId"`
	Song        songView `json:"song"`
}

type playbackView struct {
	Status  string    `json:"status"`
	Looping bool      `json:"looping"`
	Elapsed int       `json:"elapsed"`
	Song    *songView `json:"song"`
}

type queueStateView struct {
	Looping bool            `json:"looping"`
	Current *queueItemView  `json:"current"`
	Next    []queueItemView `json:"next"`
	History []queueItemView `json:"history"`
}

// call performs a request and decodes the response envelope, exiting
// on any error.
func call(method, path string, body any) json.RawMessage {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", *user)
	if *token != "" {
		req.Header.Set("X-Admin-Token", *token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()

	var e envelope
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		fatal(err)
	}
	if e.Status != "success" {
		fatal(fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode))
	}
	return e.Content
}

func fatal(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func showStatus() {
	var view playbackView
	decode(call(http.MethodGet, "/api/player", nil), &view)

	fmt.Println("\n=== PLAYBACK STATUS ===")
	fmt.Printf("Status: %s\n", view.Status)
	fmt.Printf("Looping: %v\n", view.Looping)
	if view.Song != nil {
		fmt.Printf("\nNow Playing:\n")
		fmt.Printf("  %s - %s\n", view.Song.Name, view.Song.Artist)
		fmt.Printf("  %s / %s\n", formatSecs(view.Elapsed), formatSecs(view.Song.DurationSecs))
	}
}

func showQueue() {
	var view queueStateView
	decode(call(http.MethodGet, "/api/queue", nil), &view)

	fmt.Println("\n=== QUEUE ===")
	if view.Current != nil {
		fmt.Printf("Now: [%d] %s - %s (by %s)\n",
			view.Current.Position, view.Current.Song.Name, view.Current.Song.Artist, view.Current.SubmitterID)
	}
	for _, item := range view.Next {
		fmt.Printf("     [%d] %s - %s (by %s)\n",
			item.Position, item.Song.Name, item.Song.Artist, item.SubmitterID)
	}
	if len(view.History) > 0 {
		fmt.Printf("\nHistory (%d played)\n", len(view.History))
	}
}

func add(query string) {
	var item queueItemView
	decode(call(http.MethodPost, "/api/queue/add", map[string]any{"searchQuery": query}), &item)
	fmt.Printf("Added [%d] %s - %s\n", item.Position, item.Song.Name, item.Song.Artist)
}

func search(query string) {
	var songs []songView
	decode(call(http.MethodGet, "/api/songs/search?q="+url.QueryEscape(query), nil), &songs)
	for i, s := range songs {
		fmt.Printf("%d. %s - %s (%s)\n", i+1, s.Name, s.Artist, formatSecs(s.DurationSecs))
	}
}

func remove(pos int64) {
	var item queueItemView
	decode(call(http.MethodPost, "/api/queue/remove", map[string]any{"queueIndex": pos}), &item)
	fmt.Printf("Removed [%d] %s\n", item.Position, item.Song.Name)
}

func skip() {
	var result struct {
		Skipped bool `json:"skipped"`
	}
	decode(call(http.MethodPost, "/api/player/skip", nil), &result)
	if result.Skipped {
		fmt.Println("Skipped to the next song")
	} else {
		fmt.Println("Queue exhausted, playback stopped")
	}
}

func pause() {
	var result struct {
		Status string `json:"status"`
	}
	decode(call(http.MethodPost, "/api/player/toggle-pause", nil), &result)
	fmt.Printf("Playback %s\n", result.Status)
}

func loop() {
	var result struct {
		Looping bool `json:"looping"`
	}
	decode(call(http.MethodPost, "/api/queue/toggle-loop", nil), &result)
	fmt.Printf("Looping: %v\n", result.Looping)
}

func simple(method, path, message string) {
	_ = call(method, path, nil)
	fmt.Println(message)
}

func decode(raw json.RawMessage, into any) {
	if err := json.Unmarshal(raw, into); err != nil {
		fatal(err)
	}
}

func formatSecs(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
