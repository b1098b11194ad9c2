package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/overview"
	"github.com/spf13/cobra"
)

var questionnairesGroup = &cobra.Group{
	ID:    "questionnaires",
	Title: "Stored questionnaires",
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "questionnaire id must be a number")
	}
	return id, nil
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		GroupID: questionnairesGroup.ID,
		Short:   "List questionnaires",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				listing, err := svc.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // two spaces of padding
				_, _ = fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tRESULTS")
				for _, entry := range listing {
					q := entry.Questionnaire
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", q.ID, q.Title, len(q.Questions), len(entry.Results))
				}
				return tw.Flush()
			})
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import [file]",
		GroupID: questionnairesGroup.ID,
		Short:   "Import a questionnaire",
		Long:    `Imports a questionnaire document from file, or from standard input when no file is given.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return errors.Wrap(err, "read questionnaire document")
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				id, importErr := svc.Import(ctx, data)
				if importErr != nil {
					return importErr
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported questionnaire %d\n", id)
				return nil
			})
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export <id>",
		GroupID: questionnairesGroup.ID,
		Short:   "Print a questionnaire document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				data, exportErr := svc.Export(ctx, id)
				if exportErr != nil {
					return exportErr
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		GroupID: questionnairesGroup.ID,
		Short:   "Delete a questionnaire and its results",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				if deleteErr := svc.Delete(ctx, id); deleteErr != nil {
					return deleteErr
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted questionnaire %d\n", id)
				return nil
			})
		},
	}
}

func (c *cli) resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "results <id>",
		GroupID: questionnairesGroup.ID,
		Short:   "Print the submitted answers of a questionnaire",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *overview.Service) error {
				q, submissions, resultsErr := svc.Results(ctx, id)
				if resultsErr != nil {
					return resultsErr
				}
				printResults(cmd.OutOrStdout(), q, submissions)
				return nil
			})
		},
	}
}

func printResults(w io.Writer, q models.Questionnaire, submissions []overview.Submission) {
	_, _ = fmt.Fprintf(w, "%s: %d submissions\n", q.Title, len(submissions))
	for _, s := range submissions {
		_, _ = fmt.Fprintf(w, "\nsubmission %d\n", s.ID)
		if s.Problem != "" {
			_, _ = fmt.Fprintf(w, "  cannot be shown: %s\n", s.Problem)
			continue
		}
		for _, answer := range s.Answers {
			_, _ = fmt.Fprintf(w, "  %d. %s\n     %s\n", answer.Position+1, answer.Question, answer.Display())
		}
	}
}
