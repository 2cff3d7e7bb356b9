package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/flock/pkg/browser"
	"github.com/entrhq/flock/pkg/humanize"
	"github.com/entrhq/flock/pkg/orchestrator"
	"github.com/entrhq/flock/pkg/scheduler"
)

// defaultWorkflows binds the built-in session task bodies: each one
// attaches to the started session over its connection descriptor, drives
// the page through humanized input, and detaches before the session is
// released.
func defaultWorkflows(browsers *browser.Manager, human *humanize.Engine) orchestrator.Workflows {
	return orchestrator.Workflows{
		Intake:      intakeWorkflow(browsers, human),
		Diagnostics: diagnosticsWorkflow(browsers),
		Farming:     farmingWorkflow(browsers, human),
	}
}

// withAttachment runs fn against an attached session, detaching on every
// exit path.
func withAttachment(browsers *browser.Manager, profileID, endpoint string, fn func(*browser.Session) error) error {
	if err := browsers.Initialize(); err != nil {
		return err
	}

	session, err := browsers.Attach(profileID, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if detachErr := browsers.Detach(profileID); detachErr != nil {
			debugLog.Errorf("detach from %s failed: %v", profileID, detachErr)
		}
	}()

	return fn(session)
}

// intakeWorkflow warms a fresh profile: a short browse of its landing
// page with reading pauses, so the profile accumulates ordinary history
// before it is used for anything.
func intakeWorkflow(browsers *browser.Manager, human *humanize.Engine) orchestrator.WorkflowFunc {
	return func(ctx context.Context, profileID, endpoint string) (interface{}, error) {
		var summary string
		err := withAttachment(browsers, profileID, endpoint, func(session *browser.Session) error {
			if err := human.Delay(ctx, 2*time.Second, 5*time.Second); err != nil {
				return err
			}

			page, err := session.Read(ctx, human.Between(8*time.Second, 18*time.Second))
			if err != nil {
				return err
			}
			summary = fmt.Sprintf("intake finished, read %d characters of %q", len(page.Text), page.Title)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return summary, nil
	}
}

// diagnosticsWorkflow checks that the session's page is reachable and
// responsive: attach, pull content, report its size.
func diagnosticsWorkflow(browsers *browser.Manager) orchestrator.WorkflowFunc {
	return func(ctx context.Context, profileID, endpoint string) (interface{}, error) {
		var report string
		err := withAttachment(browsers, profileID, endpoint, func(session *browser.Session) error {
			page, err := session.Read(ctx, 2*time.Second)
			if err != nil {
				return err
			}
			report = fmt.Sprintf("session healthy, %q has %d characters of visible text", page.Title, len(page.Text))
			return nil
		})
		if err != nil {
			return nil, err
		}
		return report, nil
	}
}

// farmingWorkflow keeps a profile looking alive: a longer stretch of
// scrolling and reading pauses.
func farmingWorkflow(browsers *browser.Manager, human *humanize.Engine) orchestrator.WorkflowFunc {
	return func(ctx context.Context, profileID, endpoint string) (interface{}, error) {
		err := withAttachment(browsers, profileID, endpoint, func(session *browser.Session) error {
			total := human.Between(45*time.Second, 2*time.Minute)
			if _, err := session.Read(ctx, total); err != nil {
				return err
			}
			return session.ScrollJitter(ctx)
		})
		if err != nil {
			return nil, err
		}
		return "farming cycle complete", nil
	}
}

func newIntakeCmd() *cobra.Command {
	return newWorkflowCmd("intake", "Run the intake workflow for a profile",
		func(a *app, profileID string) *scheduler.Future {
			return a.orch.RunIntake(profileID)
		})
}

func newDiagnoseCmd() *cobra.Command {
	return newWorkflowCmd("diagnose", "Check a profile's session health",
		func(a *app, profileID string) *scheduler.Future {
			return a.orch.RunDiagnostics(profileID)
		})
}

func newFarmCmd() *cobra.Command {
	return newWorkflowCmd("farm", "Run one farming cycle for a profile",
		func(a *app, profileID string) *scheduler.Future {
			return a.orch.RunFarming(profileID)
		})
}

func newWorkflowCmd(name, short string, submit func(a *app, profileID string) *scheduler.Future) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <profile-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			result, err := submit(a, args[0]).Wait(context.Background())
			if err != nil {
				return err
			}
			if result != nil {
				fmt.Printf("%v\n", result)
			}
			return nil
		},
	}
}
