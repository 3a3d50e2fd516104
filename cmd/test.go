package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/history"
	"github.com/jeddict/jeddict/internal/llm"
)

var (
	testCase      string
	testFramework string
	testPrompt    string
	testContinue  bool
	testWrite     bool
)

var testCmd = &cobra.Command{
	Use:   "test <file>",
	Short: "Generate unit tests for a file",
	Long: `Generate unit tests for a file. With --continue the previous answers for
the same file are replayed and --prompt asks for a refinement.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		src, _, err := a.source(args[0], "", 0)
		if err != nil {
			return err
		}
		store, err := openHistory(a.workspace)
		if err != nil {
			return err
		}
		defer store.Close()

		var (
			session *history.Session
			prior   []*llm.Response
		)
		if testContinue {
			session, err = store.Latest(ctx, history.KindTest, src.Path)
			switch {
			case errors.Is(err, history.ErrNotFound):
				session = nil
			case err != nil:
				return err
			default:
				if prior, err = store.Responses(ctx, session.ID); err != nil {
					return err
				}
			}
		}

		framework := testFramework
		if framework == "" {
			framework = a.cfg.TestFramework
		}
		ex, err := a.brain.TestSpecialist().GenerateTests(ctx, brain.TestRequest{
			Source:    src,
			TestCase:  testCase,
			Framework: framework,
			Prompt:    testPrompt,
		}, prior, listener(cmd))
		if err != nil {
			return err
		}

		if session == nil {
			if session, err = store.Create(ctx, history.KindTest, "tests for "+src.Path, a.cfg.Model, src.Path); err != nil {
				return err
			}
		}
		if err := store.Append(ctx, session.ID, ex.Messages(), ex.Response.Usage); err != nil {
			return err
		}

		if !testWrite {
			return nil
		}
		code := editor.ExtractCode(ex.Response.Text())
		target := editor.TestPath(src.Path)
		abs, err := editor.ResolvePath(a.workspace, target)
		if err != nil {
			return err
		}
		var plan *editor.EditPlan
		if _, statErr := os.Stat(abs); statErr == nil {
			plan, err = editor.ProposeContent(a.workspace, target, code)
		} else {
			plan, err = editor.ProposeCreate(a.workspace, target, code)
		}
		if err != nil {
			return err
		}
		applied, err := a.propose(ctx, plan)
		if err != nil {
			return err
		}
		if applied {
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", target)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().StringVar(&testCase, "case", "", "Method or scenario to focus the tests on")
	testCmd.Flags().StringVar(&testFramework, "framework", "", "Test framework, e.g. \"JUnit 5\"")
	testCmd.Flags().StringVarP(&testPrompt, "prompt", "p", "", "Extra instruction, or the refinement request with --continue")
	testCmd.Flags().BoolVarP(&testContinue, "continue", "c", false, "Refine the latest tests generated for this file")
	testCmd.Flags().BoolVar(&testWrite, "write", false, "Write the tests next to the project's other tests after confirmation")
	rootCmd.AddCommand(testCmd)
}
