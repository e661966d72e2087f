package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/rote-srs/rote/internal/domain"
	"github.com/rote-srs/rote/internal/storage"
)

// runCLI executes the root command with state directed into dir.
func runCLI(t *testing.T, dir, input string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if input != "" {
		cmd.SetIn(strings.NewReader(input))
	}
	base := []string{
		"--db-path", filepath.Join(dir, "rote.db"),
		"--repos-dir", filepath.Join(dir, "repos"),
		"--lock-path", filepath.Join(dir, "study.lock"),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeDeck(t *testing.T, dir, name, content string) string {
	t.Helper()
	deckDir := filepath.Join(dir, "decks")
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		t.Fatalf("creating deck dir: %v", err)
	}
	path := filepath.Join(deckDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing deck: %v", err)
	}
	return path
}

func TestSourcesAddListRemove(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "", "sources", "add", "/decks/go")
	if err != nil {
		t.Fatalf("sources add: %v", err)
	}
	if !strings.Contains(out, "Added local source 1: /decks/go") {
		t.Errorf("unexpected add output: %q", out)
	}

	out, _, err = runCLI(t, dir, "", "sources", "add", "https://github.com/user/decks.git")
	if err != nil {
		t.Fatalf("sources add git: %v", err)
	}
	if !strings.Contains(out, "Added git source 2") {
		t.Errorf("git source not detected: %q", out)
	}

	out, _, err = runCLI(t, dir, "", "sources", "list")
	if err != nil {
		t.Fatalf("sources list: %v", err)
	}
	if !strings.Contains(out, "/decks/go") || !strings.Contains(out, "never") {
		t.Errorf("unexpected list output: %q", out)
	}

	if _, _, err = runCLI(t, dir, "", "sources", "rm", "1"); err != nil {
		t.Fatalf("sources rm: %v", err)
	}
	out, _, err = runCLI(t, dir, "", "sources", "list")
	if err != nil {
		t.Fatalf("sources list: %v", err)
	}
	if strings.Contains(out, "/decks/go") {
		t.Errorf("removed source still listed: %q", out)
	}
}

func TestSourcesRemoveBadID(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := runCLI(t, dir, "", "sources", "rm", "abc"); err == nil {
		t.Error("expected an error for a non-numeric id")
	}
}

func TestSyncAndDueCommands(t *testing.T) {
	dir := t.TempDir()
	deck := "Q: What is Go?\nA: A language.\n\n---\n\nQ: What is a goroutine?\nA: A lightweight thread.\n"
	deckPath := writeDeck(t, dir, "go.md", deck)

	if _, _, err := runCLI(t, dir, "", "sources", "add", filepath.Dir(deckPath)); err != nil {
		t.Fatalf("sources add: %v", err)
	}

	out, _, err := runCLI(t, dir, "", "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Synced 1 sources: 2 cards parsed, 2 new, 0 orphans removed.") {
		t.Errorf("unexpected sync output: %q", out)
	}

	out, _, err = runCLI(t, dir, "", "due")
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !strings.Contains(out, "What is Go?") || !strings.Contains(out, "What is a goroutine?") {
		t.Errorf("due list missing cards: %q", out)
	}

	out, _, err = runCLI(t, dir, "", "due", "--limit", "1")
	if err != nil {
		t.Fatalf("due --limit: %v", err)
	}
	if strings.Contains(out, "What is Go?") == strings.Contains(out, "What is a goroutine?") {
		t.Errorf("limit 1 should list exactly one card: %q", out)
	}
}

func TestDueCommandEmpty(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "", "due")
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !strings.Contains(out, "No cards due.") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	deckPath := writeDeck(t, dir, "go.md", "Q: What is Go?\nA: A language.\n")

	if _, _, err := runCLI(t, dir, "", "sources", "add", filepath.Dir(deckPath)); err != nil {
		t.Fatalf("sources add: %v", err)
	}
	if _, _, err := runCLI(t, dir, "", "sync"); err != nil {
		t.Fatalf("sync: %v", err)
	}

	out, _, err := runCLI(t, dir, "", "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Total cards", "Due now", "Average ease", "2.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q: %q", want, out)
		}
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	csv := "Question,Answer,Context\nWhat is Go?,A language.,Tour\nWhat is a channel?,A typed conduit.,\n"
	csvPath := filepath.Join(dir, "deck.csv")
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	out, _, err := runCLI(t, dir, "", "import", csvPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 rows: 2 new cards, 0 already known, 0 skipped.") {
		t.Errorf("unexpected import output: %q", out)
	}

	// Re-importing the same sheet must not duplicate or reset anything.
	out, _, err = runCLI(t, dir, "", "import", csvPath)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 rows: 0 new cards, 2 already known, 0 skipped.") {
		t.Errorf("unexpected re-import output: %q", out)
	}
}

func TestGenCommand(t *testing.T) {
	dir := t.TempDir()
	notes := "Go is a statically typed language. Concurrency: composing independent computations.\n"
	notesPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notesPath, []byte(notes), 0o644); err != nil {
		t.Fatalf("writing notes: %v", err)
	}

	out, _, err := runCLI(t, dir, "", "gen", notesPath)
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	if !strings.Contains(out, "Q: What is Go?") || !strings.Contains(out, "A: a statically typed language.") {
		t.Errorf("unexpected deck: %q", out)
	}

	deckPath := filepath.Join(dir, "deck.md")
	out, _, err = runCLI(t, dir, "", "gen", notesPath, "--out", deckPath)
	if err != nil {
		t.Fatalf("gen --out: %v", err)
	}
	if !strings.Contains(out, "cards to "+deckPath) {
		t.Errorf("unexpected gen output: %q", out)
	}
	if _, err := os.Stat(deckPath); err != nil {
		t.Errorf("deck file missing: %v", err)
	}
}

func TestGenCommandNoMatches(t *testing.T) {
	dir := t.TempDir()
	notesPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notesPath, []byte("went home early\n"), 0o644); err != nil {
		t.Fatalf("writing notes: %v", err)
	}

	if _, _, err := runCLI(t, dir, "", "gen", notesPath); err == nil {
		t.Error("expected an error when nothing can be generated")
	}
}

func TestStudyCommand(t *testing.T) {
	dir := t.TempDir()
	seedDueCard(t, dir, "study-hash-1", "What is Go?", "A language.")

	// Enter reveals the answer, 4 grades it, then nothing is due.
	out, _, err := runCLI(t, dir, "\n4\n", "study")
	if err != nil {
		t.Fatalf("study: %v", err)
	}
	for _, want := range []string{
		"[1 due] What is Go?",
		"A language.",
		"Next review in 1d",
		"Session done: 1 cards graded.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("study output missing %q:\n%s", want, out)
		}
	}

	db, err := storage.Open(filepath.Join(dir, "rote.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	card, err := db.FindCardByHash("study-hash-1")
	if err != nil {
		t.Fatalf("FindCardByHash failed: %v", err)
	}
	if card.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", card.Repetitions)
	}
}

func TestStudyCommandQuit(t *testing.T) {
	dir := t.TempDir()
	seedDueCard(t, dir, "study-hash-1", "What is Go?", "A language.")

	out, _, err := runCLI(t, dir, "q\n", "study")
	if err != nil {
		t.Fatalf("study: %v", err)
	}
	if !strings.Contains(out, "Session done: 0 cards graded.") {
		t.Errorf("quit should grade nothing:\n%s", out)
	}
}

func TestStudyCommandRejectsSecondSession(t *testing.T) {
	dir := t.TempDir()
	seedDueCard(t, dir, "study-hash-1", "What is Go?", "A language.")

	lock := flock.New(filepath.Join(dir, "study.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not take the lock for the test: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if _, _, err := runCLI(t, dir, "\n4\n", "study"); err == nil {
		t.Error("expected an error while the lock is held")
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, err := runCLI(t, dir, "")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	combined := stdout + stderr
	for _, want := range []string{"sync", "study", "serve", "sources"} {
		if !strings.Contains(combined, want) {
			t.Errorf("help output missing %q:\n%s", want, combined)
		}
	}
}

func seedDueCard(t *testing.T, dir, hash, question, answer string) {
	t.Helper()
	db, err := storage.Open(filepath.Join(dir, "rote.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	card := domain.NewCard(question, answer, "", time.Now().Add(-time.Hour))
	card.Hash = hash
	if err := db.InsertCard(card, 0); err != nil {
		t.Fatalf("InsertCard failed: %v", err)
	}
}
