// Package session drives one interactive planning session: it collects the
// profile, shows a similar past session, relays turns to the agent, logs
// every exchange and writes the final document.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/agent"
	"github.com/kalambet/finplan/internal/attach"
	"github.com/kalambet/finplan/internal/completion"
	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/matcher"
	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/prompt"
	"github.com/kalambet/finplan/internal/report"
	"github.com/kalambet/finplan/internal/storage"
	"github.com/kalambet/finplan/internal/terminal"
)

const (
	quitCommand   = "quit"
	attachCommand = "/attach"

	profileQuestion = "You: What is your Name, Age, Income (in lakhs), Gender (M/F), and City of residence?"
	formatMessage   = "Invalid input format. Please try again, providing all five details separated by commas."
)

// Finder looks up a similar past session.
type Finder interface {
	FindMatch(ctx context.Context, income decimal.Decimal, gender profile.Gender, city string) (matcher.Candidate, bool, error)
}

// Index records sessions. It is optional.
type Index interface {
	SaveSession(sess storage.Session) error
	UpdateSessionStatus(id string, status storage.SessionStatus) error
	FinalizeSession(id, reportFile string) error
}

// Config wires a Controller. Agent, Logs, Input and Out are required.
type Config struct {
	Agent    agent.Agent
	Logs     *convlog.Store
	Input    terminal.LineReader
	Out      io.Writer
	Finder   Finder
	Index    Index
	Detector completion.Detector
	// HTMLReport also writes an HTML copy of the final document.
	HTMLReport bool
	// Backend is recorded with the session in the index.
	Backend string
}

// Result summarises a finished session.
type Result struct {
	State     State
	SessionID string
	Profile   profile.Profile
	LogFile   string
	Report    report.Paths
	Turns     int
}

// Controller runs a single session. It is not safe for concurrent use.
type Controller struct {
	cfg Config

	state  State
	result Result
}

func New(cfg Config) *Controller {
	if cfg.Detector == nil {
		cfg.Detector = completion.Keyword{}
	}
	return &Controller{cfg: cfg, state: CollectingProfile}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Run drives the session to DONE or ABORTED. A non-nil error is returned
// exactly when the session ends in ABORTED.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	c.println("Welcome! I am your AI financial assistant.")
	c.println("Let's start building your financial plan.")
	c.println("Type 'quit' at any time to exit.")

	p, ok, err := c.collectProfile()
	if err != nil {
		return c.abort(err)
	}
	if !ok {
		return c.finish(storage.StatusQuit)
	}
	c.result.Profile = p
	key := p.Key()
	c.result.LogFile = c.cfg.Logs.Path(key)

	c.showSimilar(ctx, p)
	c.register(p)

	c.state = AgentLoop
	c.println("Agent is getting ready with the initial plan...")
	if _, err := c.turn(ctx, key, prompt.Initial(p)); err != nil {
		return c.abort(err)
	}

	for c.state == AgentLoop {
		line, err := c.cfg.Input.ReadLine("You: ")
		if errors.Is(err, io.EOF) || errors.Is(err, terminal.ErrInterrupted) {
			return c.finish(storage.StatusQuit)
		}
		if err != nil {
			return c.abort(fmt.Errorf("reading input: %w", err))
		}

		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, quitCommand) {
			return c.finish(storage.StatusQuit)
		}
		if trimmed == "" {
			continue
		}

		query := line
		if rest, ok := cutCommand(trimmed, attachCommand); ok {
			q, err := c.attachment(rest)
			if err != nil {
				c.printf("Could not read attachment: %v\n", err)
				continue
			}
			query = q
		}

		resp, err := c.turn(ctx, key, query)
		if err != nil {
			return c.abort(err)
		}
		if c.cfg.Detector.IsFinal(resp) {
			c.state = Finalizing
			if err := c.finalize(resp); err != nil {
				return c.abort(err)
			}
		}
	}
	return c.finish(storage.StatusFinalized)
}

// collectProfile reads the profile line. ok is false when the user left
// before answering.
func (c *Controller) collectProfile() (profile.Profile, bool, error) {
	c.println(profileQuestion)
	var line string
	for strings.TrimSpace(line) == "" {
		var err error
		line, err = c.cfg.Input.ReadLine("")
		if errors.Is(err, io.EOF) || errors.Is(err, terminal.ErrInterrupted) {
			return profile.Profile{}, false, nil
		}
		if err != nil {
			return profile.Profile{}, false, fmt.Errorf("reading profile: %w", err)
		}
	}
	if strings.EqualFold(strings.TrimSpace(line), quitCommand) {
		return profile.Profile{}, false, nil
	}

	p, err := profile.ParseLine(line)
	if err != nil {
		c.println(formatMessage)
		return profile.Profile{}, false, err
	}
	return p, true, nil
}

// showSimilar prints the log of a matching past session. Every failure here
// is reported and otherwise ignored.
func (c *Controller) showSimilar(ctx context.Context, p profile.Profile) {
	if c.cfg.Finder == nil {
		return
	}
	match, ok, err := c.cfg.Finder.FindMatch(ctx, p.Income, p.Gender, p.City)
	if err != nil {
		slog.Warn("profile matching failed", "error", err)
		return
	}
	if !ok {
		return
	}

	c.printf("\nFound a similar profile: %s\n", filepath.Base(match.LogFile))
	records, err := c.cfg.Logs.LoadFile(match.LogFile)
	if err != nil {
		c.printf("Error loading historical data: %v\n", err)
		return
	}
	c.println("Loading historical conversation data for reference...")
	for _, r := range records {
		c.printf("Historical Query: %s\n", r.Query)
		c.printf("Historical Response: %s\n", r.Response)
	}
}

func (c *Controller) register(p profile.Profile) {
	if c.cfg.Index == nil {
		return
	}
	sess := storage.Session{
		ID:      uuid.New().String(),
		Name:    p.Name,
		Age:     p.Age,
		Gender:  string(p.Gender),
		Income:  p.Income.String(),
		City:    p.City,
		LogFile: c.result.LogFile,
		Backend: c.cfg.Backend,
		Status:  storage.StatusActive,
	}
	if err := c.cfg.Index.SaveSession(sess); err != nil {
		slog.Warn("could not index session", "error", err)
		return
	}
	c.result.SessionID = sess.ID
}

// turn sends query to the agent, prints the reply and logs the exchange.
func (c *Controller) turn(ctx context.Context, key profile.Key, query string) (string, error) {
	resp, err := c.cfg.Agent.Ask(ctx, query)
	if err != nil {
		if !errors.Is(err, agent.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", agent.ErrUnavailable, err)
		}
		c.printf("Agent error: %v\n", err)
		return "", err
	}
	c.printf("Agent: %s\n", resp)

	if err := c.cfg.Logs.Append(key, query, resp); err != nil {
		return "", fmt.Errorf("logging conversation: %w", err)
	}
	c.result.Turns++
	return resp, nil
}

func (c *Controller) attachment(path string) (string, error) {
	if path == "" {
		return "", errors.New("usage: /attach <path>")
	}
	doc, err := attach.Extract(path)
	if err != nil {
		return "", err
	}
	c.printf("Attached %s (%d characters)\n", doc.Name, len([]rune(doc.Text)))
	return prompt.Attachment(doc.Name, doc.Text, doc.Truncated), nil
}

func (c *Controller) finalize(resp string) error {
	c.println("\nAgent has completed the plan. Automatically generating the final document...")

	paths, err := report.Write(c.result.LogFile, completion.Strip(resp), c.cfg.HTMLReport)
	if err != nil {
		return err
	}
	c.result.Report = paths
	c.printf("\nYour final investment plan has been saved to '%s'.\n", paths.Markdown)
	if paths.HTML != "" {
		c.printf("An HTML copy is at '%s'.\n", paths.HTML)
	}

	if c.cfg.Index != nil && c.result.SessionID != "" {
		if err := c.cfg.Index.FinalizeSession(c.result.SessionID, paths.Markdown); err != nil {
			slog.Warn("could not update session index", "id", c.result.SessionID, "error", err)
		}
	}
	c.state = Done
	return nil
}

func (c *Controller) finish(status storage.SessionStatus) (Result, error) {
	if status != storage.StatusFinalized {
		c.setStatus(status)
	}
	c.state = Done
	c.result.State = Done
	return c.result, nil
}

func (c *Controller) abort(err error) (Result, error) {
	c.setStatus(storage.StatusAborted)
	c.state = Aborted
	c.result.State = Aborted
	return c.result, err
}

func (c *Controller) setStatus(status storage.SessionStatus) {
	if c.cfg.Index == nil || c.result.SessionID == "" {
		return
	}
	if err := c.cfg.Index.UpdateSessionStatus(c.result.SessionID, status); err != nil {
		slog.Warn("could not update session index", "id", c.result.SessionID, "error", err)
	}
}

func (c *Controller) println(s string) { fmt.Fprintln(c.cfg.Out, s) }

func (c *Controller) printf(format string, args ...any) { fmt.Fprintf(c.cfg.Out, format, args...) }

// cutCommand reports whether line starts with the command word and returns
// the trimmed remainder.
func cutCommand(line, cmd string) (string, bool) {
	if line == cmd {
		return "", true
	}
	if rest, ok := strings.CutPrefix(line, cmd+" "); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}
