// Package session validates a download request and hands it to the
// dispatcher.
//
// It is the command-line counterpart of a form submit: every rejection is
// reported as a single line to the user and nothing is submitted.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YenHsinCHEN/MopsDownloader/internal/downloader"
	"github.com/YenHsinCHEN/MopsDownloader/internal/pacing"
	"github.com/YenHsinCHEN/MopsDownloader/internal/task"
)

// ErrRejected is returned when a request fails validation.
var ErrRejected = errors.New("session: request rejected")

// Submitter starts runs. *downloader.Dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, job downloader.Job) *downloader.Run
}

// Printer receives user-facing lines. *progress.Reporter implements it.
type Printer interface {
	Println(msg string)
}

// Opener opens the save location named by dir.
type Opener func(ctx context.Context, dir string) (downloader.Saver, error)

// Session validates requests against a per-run limit.
type Session struct {
	MaxTasks  int
	Submitter Submitter
	Open      Opener
	Out       Printer
}

// Request is one user submission.
type Request struct {
	SaveDirectory string
	Selection     task.Selection
}

// Plan is a validated request.
type Plan struct {
	SaveDirectory string
	Tasks         []task.Task
	Window        pacing.Window
}

// Plan validates req and builds the ordered task list without starting
// anything. Rejections are printed and returned wrapped in ErrRejected.
func (s *Session) Plan(req Request) (Plan, error) {
	if strings.TrimSpace(req.SaveDirectory) == "" {
		return Plan{}, s.reject("error: choose a save directory first")
	}
	if strings.TrimSpace(req.Selection.CompanyID) == "" {
		return Plan{}, s.reject("error: enter a stock code")
	}

	tasks := task.Build(req.Selection)
	if len(tasks) == 0 {
		return Plan{}, s.reject("notice: nothing selected to download")
	}
	if len(tasks) > s.MaxTasks {
		return Plan{}, s.reject(fmt.Sprintf(
			"error: at most %d files per run, %d selected; reduce the selection and try again",
			s.MaxTasks, len(tasks)))
	}

	return Plan{
		SaveDirectory: req.SaveDirectory,
		Tasks:         tasks,
		Window:        pacing.Pace(len(tasks)),
	}, nil
}

// Start validates req, prints the pacing notice, opens the save location
// and submits the run.
func (s *Session) Start(ctx context.Context, req Request) (*downloader.Run, Plan, error) {
	plan, err := s.Plan(req)
	if err != nil {
		return nil, plan, err
	}

	s.println(plan.Window.Notice())

	store, err := s.Open(ctx, plan.SaveDirectory)
	if err != nil {
		return nil, plan, fmt.Errorf("open save location: %w", err)
	}

	run := s.Submitter.Submit(ctx, downloader.Job{
		Tasks:  plan.Tasks,
		Store:  store,
		Window: plan.Window,
	})
	return run, plan, nil
}

func (s *Session) reject(msg string) error {
	s.println(msg)
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}

func (s *Session) println(msg string) {
	if s.Out != nil {
		s.Out.Println(msg)
	}
}
