package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/editor"
	"github.com/jeddict/jeddict/internal/scanner"
)

// memberFlags locate the member a command works on.
type memberFlags struct {
	name  string
	line  int
	write bool
}

func (f *memberFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "member", "m", "", "Member name, optionally qualified as Type.member")
	cmd.Flags().IntVarP(&f.line, "line", "l", 0, "Line inside the member")
	cmd.Flags().BoolVar(&f.write, "write", false, "Apply the result to the file after confirmation")
}

func (f *memberFlags) required() error {
	if f.name == "" && f.line <= 0 {
		return errors.New("pass --member or --line")
	}
	return nil
}

var (
	docFlags     memberFlags
	fixFlags     memberFlags
	enhanceFlags memberFlags
	nameFlags    memberFlags

	fixErrors   string
	enhanceHint string
	nameKind    string
)

var docCmd = &cobra.Command{
	Use:   "doc <file>",
	Short: "Write or update the documentation comment of a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := docFlags.required(); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		src, m, err := a.source(args[0], docFlags.name, docFlags.line)
		if err != nil {
			return err
		}
		assistant := a.brain.Assistant()
		var comment string
		if existing := existingDoc(src, m); existing != "" {
			comment, err = assistant.UpdateDocComment(ctx, src, existing)
		} else {
			comment, err = assistant.GenerateDocComment(ctx, src)
		}
		if err != nil {
			return err
		}
		if !docFlags.write {
			fmt.Fprintln(cmd.OutOrStdout(), comment)
			return nil
		}
		return patchMember(cmd, a, args[0], m, editor.SetDocComment(comment))
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix <file>",
	Short: "Fix the bugs of a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fixFlags.required(); err != nil {
			return err
		}
		errs, err := flagText(cmd, fixErrors)
		if err != nil {
			return err
		}
		return rewriteMember(cmd, args[0], &fixFlags, func(a *app, src brain.Source) (string, error) {
			return a.brain.Assistant().FixMethod(cmd.Context(), src, errs)
		})
	},
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <file>",
	Short: "Improve a member while keeping its behaviour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := enhanceFlags.required(); err != nil {
			return err
		}
		return rewriteMember(cmd, args[0], &enhanceFlags, func(a *app, src brain.Source) (string, error) {
			return a.brain.Assistant().EnhanceMethod(cmd.Context(), src, enhanceHint)
		})
	},
}

var nameCmd = &cobra.Command{
	Use:   "name <file>",
	Short: "Suggest better names for a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := nameFlags.required(); err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		src, m, err := a.source(args[0], nameFlags.name, nameFlags.line)
		if err != nil {
			return err
		}
		kind := nameKind
		if kind == "" {
			kind = string(m.Kind)
		}
		names, err := a.brain.Assistant().SuggestNames(cmd.Context(), src, kind)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func rewriteMember(cmd *cobra.Command, path string, f *memberFlags, generate func(*app, brain.Source) (string, error)) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	src, m, err := a.source(path, f.name, f.line)
	if err != nil {
		return err
	}
	code, err := generate(a, src)
	if err != nil {
		return err
	}
	if !f.write {
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	}
	return patchMember(cmd, a, path, m, editor.ReplaceWith(code))
}

func patchMember(cmd *cobra.Command, a *app, path string, m *scanner.Member, patch editor.MemberPatch) error {
	plan, err := editor.PatchMember(a.workspace, path, m.QualifiedName(), m.Line, patch)
	if err != nil {
		return err
	}
	applied, err := a.propose(cmd.Context(), plan)
	if err != nil {
		return err
	}
	if applied {
		fmt.Fprintln(cmd.OutOrStdout(), "Applied:", plan.Summary())
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Not applied.")
	}
	return nil
}

// existingDoc returns the documentation comment of m as found in src.Code.
func existingDoc(src brain.Source, m *scanner.Member) string {
	if m == nil || !m.HasDoc() {
		return ""
	}
	n := m.DocEnd - m.DocStart
	if n > len(src.Code) {
		return ""
	}
	return strings.TrimSpace(src.Code[:n])
}

// flagText returns v, or stdin when v is "-".
func flagText(cmd *cobra.Command, v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	return argsText(cmd, []string{"-"})
}

func init() {
	docFlags.register(docCmd)
	fixFlags.register(fixCmd)
	enhanceFlags.register(enhanceCmd)
	nameFlags.register(nameCmd)
	nameCmd.Flags().Lookup("write").Hidden = true

	fixCmd.Flags().StringVarP(&fixErrors, "errors", "e", "", "Compiler or test output, \"-\" reads stdin")
	enhanceCmd.Flags().StringVar(&enhanceHint, "hint", "", "What to focus on")
	nameCmd.Flags().StringVar(&nameKind, "kind", "", "What is being named, e.g. method or variable")

	rootCmd.AddCommand(docCmd, fixCmd, enhanceCmd, nameCmd)
}
