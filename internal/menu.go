package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const scheduleExamples = "Examples: '9am', '10:30pm', '14:00', '2025-01-15 9am'"

// Menu is the interactive operator loop: upload now, schedule, list, quit
type Menu struct {
	app *App
	in  *bufio.Scanner
	out io.Writer
}

// NewMenu creates a menu reading answers from in and writing prompts to out
func NewMenu(app *App, in io.Reader, out io.Writer) *Menu {
	return &Menu{app: app, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the operator quits, input ends or ctx is done.
// The dispatcher is stopped and the session summary printed on exit.
func (m *Menu) Run(ctx context.Context) error {
	defer func() {
		m.app.Close()
		m.app.PrintSessionSummary()
		fmt.Fprintln(m.out, "\nGoodbye!")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprintln(m.out, "\n"+banner)
		fmt.Fprintln(m.out, "MAIN MENU")
		fmt.Fprintln(m.out, banner)
		fmt.Fprintln(m.out, "1. Upload now")
		fmt.Fprintln(m.out, "2. Schedule upload")
		fmt.Fprintln(m.out, "3. View scheduled uploads")
		fmt.Fprintln(m.out, "4. Quit")

		choice, ok := m.ask("\nSelect option (1-4): ")
		if !ok {
			return m.in.Err()
		}

		switch choice {
		case "1", "2":
			if err := m.submit(ctx, choice == "2"); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				fmt.Fprintf(m.out, "%v\n", err)
			}
		case "3":
			fmt.Fprintln(m.out, m.app.ScheduledTable())
		case "4", "q", "quit":
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid option")
		}
	}
}

func (m *Menu) submit(ctx context.Context, scheduled bool) error {
	path, ok := m.ask("\nEnter video file path: ")
	if !ok {
		return io.EOF
	}
	path = CleanPath(path)
	if !FileExists(path) {
		return fmt.Errorf("file not found: %s", path)
	}

	contextHint, ok := m.ask("\nEnter context about the video (optional): ")
	if !ok {
		return io.EOF
	}

	fmt.Fprintln(m.out, "\nPrivacy options: 1) Private  2) Unlisted  3) Public")
	privacyChoice, ok := m.ask("Select privacy (1-3, default: 1): ")
	if !ok {
		return io.EOF
	}
	visibility, err := ParseVisibility(privacyChoice)
	if err != nil {
		fmt.Fprintf(m.out, "Unknown privacy %q, using private\n", privacyChoice)
		visibility = VisibilityPrivate
	}

	tagsInput, ok := m.ask("\nEnter tags (comma-separated, optional): ")
	if !ok {
		return io.EOF
	}
	tags := ParseTags(tagsInput)

	if !scheduled {
		fmt.Fprintln(m.out, "\n"+strings.Repeat("-", 60))
		_, err := m.app.UploadNow(ctx, UploadRequest{
			MediaPath:  path,
			Context:    contextHint,
			Visibility: visibility,
			Tags:       tags,
		})
		if err == nil {
			fmt.Fprintln(m.out, "\nVIDEO UPLOADED SUCCESSFULLY!")
		}
		return nil
	}

	fmt.Fprintln(m.out, "\nSchedule upload time")
	fmt.Fprintln(m.out, scheduleExamples)
	phrase, ok := m.ask("Enter time: ")
	if !ok {
		return io.EOF
	}
	fireAt, err := ParseScheduleTime(phrase, m.app.now())
	if err != nil {
		return fmt.Errorf("invalid time format: %w", err)
	}

	_, err = m.app.Schedule(ctx, path, fireAt, visibility, tags, contextHint)
	return err
}

func (m *Menu) ask(prompt string) (string, bool) {
	fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}
