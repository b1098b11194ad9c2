package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/overview"
	"github.com/myrjola/survey/internal/survey"
	"github.com/spf13/cobra"
)

var sessionsGroup = &cobra.Group{
	ID:    "sessions",
	Title: "Interactive sessions",
}

var errUsage = errors.NewSentinel("invalid command")

const designHelp = `commands (questions and options are numbered from 1):
  title <text>                 set the title
  description <text>           set the description
  add <type> [n]               add a SingleChoice, MultipleChoice or Blank question, at position n if given
  text <n> <text>              set the text of question n
  option add <n>               add an option to question n
  option set <n> <o> <text>    set option o of question n
  option remove <n> <o>        remove option o of question n
  hint <n> <text>              set the hint of blank question n
  duplicate <n>                copy question n
  move <n> <m>                 swap questions n and m
  remove <n>                   remove question n
  show                         print the draft
  validate                     list what blocks saving
  commit                       save and quit
  quit                         quit without saving`

func (c *cli) designCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "design [id]",
		GroupID: sessionsGroup.ID,
		Short:   "Edit a questionnaire",
		Long:    "Opens a line-oriented editor on questionnaire id, or on a new questionnaire when no id is given.\n\n" + designHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				id  int64
				err error
			)
			if len(args) == 1 {
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				var session *design.Session
				if len(args) == 1 {
					session, err = svc.EditDesign(ctx, id)
				} else {
					session, err = svc.NewDesign(ctx)
				}
				if err != nil {
					return err
				}
				editor := &designEditor{
					ctx:     ctx,
					svc:     svc,
					session: session,
					in:      bufio.NewScanner(cmd.InOrStdin()),
					out:     cmd.OutOrStdout(),
				}
				return editor.run()
			})
		},
	}
}

type designEditor struct {
	ctx     context.Context
	svc     *overview.Service
	session *design.Session
	in      *bufio.Scanner
	out     io.Writer
}

func (e *designEditor) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(e.out, format, a...)
}

func (e *designEditor) run() error {
	e.printf("editing questionnaire %d, type help for commands\n", e.session.ID())
	for {
		e.printf("> ")
		if !e.in.Scan() {
			e.printf("\n")
			if err := e.in.Err(); err != nil {
				return errors.Wrap(err, "read command")
			}
			return errors.New("input ended without commit")
		}
		line := strings.TrimSpace(e.in.Text())
		if line == "" {
			continue
		}
		done, err := e.exec(line)
		if err != nil {
			e.printf("error: %v\n", err)
			var validationErr *design.ValidationError
			if errors.As(err, &validationErr) {
				e.printFailures(validationErr.Failures)
			}
			continue
		}
		if done {
			return nil
		}
	}
}

// exec runs one command line and reports whether the editor is done.
func (e *designEditor) exec(line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	s := e.session
	switch command {
	case "help":
		e.printf("%s\n", designHelp)
	case "title":
		s.SetTitle(rest)
	case "description":
		s.SetDescription(rest)
	case "add":
		return false, e.add(rest)
	case "text":
		n, text, err := questionAndText(rest)
		if err != nil {
			return false, err
		}
		return false, s.SetQuestionText(n, text)
	case "option":
		return false, e.option(rest)
	case "hint":
		n, text, err := questionAndText(rest)
		if err != nil {
			return false, err
		}
		return false, s.SetHint(n, text)
	case "duplicate", "remove":
		n, err := positions(rest, 1)
		if err != nil {
			return false, err
		}
		if command == "duplicate" {
			return false, s.Duplicate(n[0])
		}
		return false, s.Remove(n[0])
	case "move":
		n, err := positions(rest, 2) //nolint:mnd // two questions
		if err != nil {
			return false, err
		}
		return false, s.Move(n[0], n[1])
	case "show":
		e.show()
	case "validate":
		failures := s.Validate()
		if len(failures) == 0 {
			e.printf("ready to commit\n")
		}
		e.printFailures(failures)
	case "commit":
		q, err := e.svc.FinishDesign(e.ctx, s)
		if err != nil {
			return false, err
		}
		e.printf("saved questionnaire %d\n", q.ID)
		return true, nil
	case "quit":
		e.printf("discarded changes\n")
		return true, nil
	default:
		return false, errors.Wrap(errUsage, command)
	}
	return false, nil
}

func (e *designEditor) add(rest string) error {
	name, position, hasPosition := strings.Cut(rest, " ")
	t, err := models.ParseQuestionType(name)
	if err != nil {
		return err
	}
	if !hasPosition {
		n, addErr := e.session.AddQuestion(t)
		if addErr == nil {
			e.printf("added question %d\n", n+1)
		}
		return addErr
	}
	n, err := positions(position, 1)
	if err != nil {
		return err
	}
	return e.session.InsertQuestion(t, n[0])
}

func (e *designEditor) option(rest string) error {
	action, args, _ := strings.Cut(rest, " ")
	switch action {
	case "add":
		n, err := positions(args, 1)
		if err != nil {
			return err
		}
		_, err = e.session.AddOption(n[0])
		return err
	case "set":
		fields := strings.SplitN(strings.TrimSpace(args), " ", 3) //nolint:mnd // question, option and text
		if len(fields) < 2 {                                      //nolint:mnd // question and option
			return errors.Wrap(errUsage, "option set <n> <o> <text>")
		}
		n, err := positions(strings.Join(fields[:2], " "), 2) //nolint:mnd // question and option
		if err != nil {
			return err
		}
		text := ""
		if len(fields) == 3 { //nolint:mnd // text present
			text = fields[2]
		}
		return e.session.SetOption(n[0], n[1], text)
	case "remove":
		n, err := positions(args, 2) //nolint:mnd // question and option
		if err != nil {
			return err
		}
		return e.session.RemoveOption(n[0], n[1])
	default:
		return errors.Wrap(errUsage, "option "+action)
	}
}

func (e *designEditor) show() {
	s := e.session
	e.printf("%s\n%s\n", s.Title(), s.Description())
	for i, q := range s.Questions() {
		e.printf("%d. [%s] %s\n", i+1, q.Type(), q.Text)
		if options, ok := models.Options(q.PossibleAnswer); ok {
			for o, option := range options {
				e.printf("   %d) %s\n", o+1, option)
			}
		} else if hint, isBlank := q.PossibleAnswer.(models.BlankHint); isBlank && hint.HintText() != "" {
			e.printf("   hint: %s\n", hint.HintText())
		}
	}
}

func (e *designEditor) printFailures(failures []design.ValidationFailure) {
	for _, f := range failures {
		e.printf("  - %s\n", f.Message)
	}
}

// positions parses want one-based numbers from s and returns them zero-based.
func positions(s string, want int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, errors.Wrap(errUsage, fmt.Sprintf("expected %d numbers", want))
	}
	n := make([]int, want)
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrap(errUsage, "not a number: "+field)
		}
		n[i] = v - 1
	}
	return n, nil
}

func questionAndText(rest string) (int, string, error) {
	number, text, _ := strings.Cut(rest, " ")
	n, err := positions(number, 1)
	if err != nil {
		return 0, "", err
	}
	return n[0], strings.TrimSpace(text), nil
}

func (c *cli) takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "take <id>",
		GroupID: sessionsGroup.ID,
		Short:   "Answer a questionnaire",
		Long: `Walks through questionnaire id one question at a time. Answer choice questions with option numbers,
separated by commas for multiple choice, and blank questions with text. Type :back for the previous question and
:quit to leave without submitting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				session, startErr := svc.StartSurvey(ctx, id)
				if startErr != nil {
					return startErr
				}
				return takeSurvey(ctx, svc, session, bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout())
			})
		},
	}
}

func takeSurvey(
	ctx context.Context,
	svc *overview.Service,
	session *survey.Session,
	in *bufio.Scanner,
	out io.Writer,
) error {
	printf := func(format string, a ...any) {
		_, _ = fmt.Fprintf(out, format, a...)
	}
	q := session.Questionnaire()
	printf("%s\n%s\n", q.Title, q.Description)
	for {
		position := session.CurrentIndex()
		question := session.Current()
		printf("\n[%d/%d] %s\n", position+1, session.Len(), question.Text)
		if options, ok := models.Options(question.PossibleAnswer); ok {
			for o, option := range options {
				printf("  %d) %s\n", o+1, option)
			}
		} else if hint, isBlank := question.PossibleAnswer.(models.BlankHint); isBlank && hint.HintText() != "" {
			printf("  (%s)\n", hint.HintText())
		}
		printf("> ")
		if !in.Scan() {
			printf("\n")
			if err := in.Err(); err != nil {
				return errors.Wrap(err, "read answer")
			}
			return errors.New("input ended before the survey was submitted")
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case ":quit":
			printf("left without submitting\n")
			return nil
		case ":back":
			if err := session.Previous(); err != nil {
				return err
			}
			continue
		}

		answer, err := parseAnswer(question, line)
		if err == nil {
			err = session.Answer(position, answer)
		}
		if err != nil {
			printf("error: %v\n", err)
			continue
		}
		if !session.IsLast() {
			if err = session.Next(); err != nil {
				return err
			}
			continue
		}
		result, err := svc.SubmitSurvey(ctx, session)
		if err != nil {
			return err
		}
		printf("submitted %d answers, thank you\n", len(result.QuestionResults))
		return nil
	}
}

// parseAnswer reads line as an answer to q. Option numbers are one-based and multiple choice numbers are separated by
// commas or spaces.
func parseAnswer(q models.Question, line string) (models.Answer, error) {
	switch q.Type() {
	case models.QuestionTypeSingleChoice:
		n, err := positions(line, 1)
		if err != nil {
			return nil, err
		}
		return models.SingleChoiceAnswer{SelectedIndex: n[0]}, nil
	case models.QuestionTypeMultipleChoice:
		// An empty line selects nothing.
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' })
		n, err := positions(strings.Join(fields, " "), len(fields))
		if err != nil {
			return nil, err
		}
		return models.NewMultipleChoiceAnswer(n...), nil
	case models.QuestionTypeBlank:
		return models.BlankAnswer{Text: line}, nil
	}
	return nil, errors.Wrap(models.ErrUnknownQuestionType, "parse answer")
}
