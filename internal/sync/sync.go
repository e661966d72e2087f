// Package sync reconciles the card database against its configured
// sources: deck files on disk and git repositories holding them.
package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rote-srs/rote/internal/cardid"
	"github.com/rote-srs/rote/internal/domain"
	"github.com/rote-srs/rote/internal/excel"
	"github.com/rote-srs/rote/internal/gitsource"
	"github.com/rote-srs/rote/internal/parser"
	"github.com/rote-srs/rote/internal/storage"
)

// Summary aggregates what a sync pass did across all sources.
type Summary struct {
	Sources        int
	CardsParsed    int
	CardsInserted  int
	OrphansDeleted int
	Errors         []string
}

func (s *Summary) addError(err error) {
	slog.Error("sync error", "error", err)
	s.Errors = append(s.Errors, err.Error())
}

// Run reconciles every configured source. Git sources are cloned or
// pulled into reposDir first, then scanned like local ones. New cards
// enter the database immediately due; cards that disappeared from their
// source are deleted. Failures on one source do not stop the others.
func Run(db *storage.DB, reposDir string, now time.Time) (*Summary, error) {
	slog.Info("starting sync for all sources")

	sources, err := db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	summary := &Summary{}
	if len(sources) == 0 {
		slog.Info("no sources configured")
		return summary, nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "kind", source.Kind, "path", source.Path)
		summary.Sources++

		scanPath := source.Path
		if source.Kind == storage.SourceKindGit {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				summary.addError(fmt.Errorf("determining local path for %s: %w", source.Path, err))
				continue
			}
			if err := gitsource.Sync(source.Path, localRepoPath); err != nil {
				summary.addError(fmt.Errorf("syncing git repo %s: %w", source.Path, err))
				continue
			}
			scanPath = localRepoPath
		}

		reconcileSource(db, source, scanPath, now, summary)
	}

	slog.Info("sync complete",
		"sources", summary.Sources,
		"parsed", summary.CardsParsed,
		"inserted", summary.CardsInserted,
		"orphans_deleted", summary.OrphansDeleted,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// reconcileSource walks one source directory, inserting cards it has not
// seen and deleting cards whose content no longer exists. An edited card
// hashes differently, so it arrives as a new card and its old state is
// deleted as an orphan.
func reconcileSource(db *storage.DB, source storage.Source, scanPath string, now time.Time, summary *Summary) {
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}

		cards, err := deckCards(path)
		if err != nil {
			summary.addError(fmt.Errorf("reading %s: %w", path, err))
			return nil
		}

		for _, card := range cards {
			card.Hash = cardid.Hash(card)
			summary.CardsParsed++
			found[card.Hash] = true

			existing, err := db.FindCardByHash(card.Hash)
			if err != nil {
				summary.addError(fmt.Errorf("db check for %s: %w", card.Hash, err))
				continue
			}
			if existing != nil {
				continue
			}

			slog.Info("new card found, inserting", "hash", card.Hash, "file", path)
			fresh := domain.NewCard(card.Question, card.Answer, card.Context, now)
			fresh.Hash = card.Hash
			if err := db.InsertCard(fresh, source.ID); err != nil {
				summary.addError(fmt.Errorf("db insert for %s: %w", card.Hash, err))
				continue
			}
			summary.CardsInserted++
		}
		return nil
	})
	if walkErr != nil {
		summary.addError(fmt.Errorf("walking %s: %w", scanPath, walkErr))
		return
	}

	dbCards, err := db.GetCardsBySourceID(source.ID)
	if err != nil {
		summary.addError(fmt.Errorf("getting cards for source %d: %w", source.ID, err))
		return
	}

	for _, dbCard := range dbCards {
		if found[dbCard.Hash] {
			continue
		}
		slog.Info("orphaned card, deleting", "hash", dbCard.Hash)
		if err := db.DeleteCardByHash(dbCard.Hash); err != nil {
			summary.addError(fmt.Errorf("deleting orphaned card %s: %w", dbCard.Hash, err))
			continue
		}
		summary.OrphansDeleted++
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", scanPath,
		"found_cards", len(found),
	)
}

// deckCards extracts the cards of a single deck file. Files that are not
// decks yield nothing.
func deckCards(path string) ([]domain.Card, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return parser.ParseFile(path)
	case ".xlsx", ".csv":
		cards, result, err := excel.ReadCards(excel.DefaultImportConfig(path))
		if err != nil {
			return nil, err
		}
		for _, msg := range result.Errors {
			slog.Warn("skipped spreadsheet row", "file", path, "detail", msg)
		}
		return cards, nil
	default:
		return nil, nil
	}
}

// gitURLToLocalPath maps a repository URL to a stable directory under
// baseDir. Both https URLs and scp-like git@host:user/repo.git forms are
// understood.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http") {
		sanitized := strings.TrimSuffix(parsedURL.Path, ".git")
		return filepath.Join(baseDir, parsedURL.Host, sanitized), nil
	}

	if strings.Contains(repoURL, "@") {
		parts := strings.Split(repoURL, ":")
		if len(parts) == 2 {
			hostAndUser := strings.Split(parts[0], "@")
			if len(hostAndUser) == 2 {
				host := hostAndUser[1]
				repoPath := strings.TrimSuffix(parts[1], ".git")
				return filepath.Join(baseDir, host, repoPath), nil
			}
		}
	}

	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
