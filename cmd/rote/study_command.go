package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/session"
	"github.com/rote-srs/rote/internal/sm2"
	"github.com/rote-srs/rote/internal/storage"
)

func newStudyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "study",
		Short: "Review due cards in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				sess, err := session.Start(db, cfg.LockPath, cfg.StudyLimit)
				if err != nil {
					if errors.Is(err, session.ErrActiveSession) {
						return fmt.Errorf("another study session is already running")
					}
					return err
				}
				defer sess.Close()

				return runStudyLoop(cmd.InOrStdin(), cmd.OutOrStdout(), sess)
			})
		},
	}
}

// runStudyLoop drives the front/reveal/grade cycle until nothing is due,
// the session limit is reached or the user quits.
func runStudyLoop(in io.Reader, out io.Writer, sess *session.Session) error {
	scanner := bufio.NewScanner(in)

	for {
		now := time.Now()
		card, err := sess.Next(now)
		if err != nil {
			return err
		}
		if card == nil {
			break
		}

		remaining, err := sess.Remaining(now)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n[%d due] %s\n", remaining, card.Question)
		if card.Context != "" {
			fmt.Fprintf(out, "(%s)\n", card.Context)
		}

		fmt.Fprint(out, "Press enter to show the answer, q to quit: ")
		line, ok := readLine(scanner)
		if !ok || line == "q" {
			break
		}

		fmt.Fprintf(out, "\n%s\n", card.Answer)

		quality, quit := promptGrade(scanner, out)
		if quit {
			break
		}

		updated, err := sess.Grade(card.Hash, quality, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next review in %dd, on %s.\n",
			updated.IntervalDays, updated.NextReview.Local().Format("2006-01-02"))
	}

	fmt.Fprintf(out, "\nSession done: %d cards graded.\n", sess.Graded())
	return nil
}

// promptGrade asks for a 0-5 grade until it gets one. quit is true when
// the user typed q or input ran out.
func promptGrade(scanner *bufio.Scanner, out io.Writer) (sm2.Quality, bool) {
	for {
		fmt.Fprint(out, "Grade 0-5 (0 blackout, 3 pass, 5 perfect), q to quit: ")
		line, ok := readLine(scanner)
		if !ok || line == "q" {
			return 0, true
		}

		quality, err := sm2.ParseQuality(line)
		if err != nil {
			fmt.Fprintln(out, "Enter a number from 0 to 5.")
			continue
		}
		return quality, false
	}
}

func readLine(scanner *bufio.Scanner) (string, bool) {
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}
