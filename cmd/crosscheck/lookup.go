package main

import (
	"github.com/spf13/cobra"

	"github.com/integrity/sanctions-crosscheck/internal/app"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

func (c *cli) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <cpf|cnpj>",
		Short: "Screen one document against every lookup source",
		Long: `Query the transparency portal datasets, Receita Federal, PNCP and the local
sanction registry for one CPF or CNPJ and print the scored report as JSON.

Punctuation in the document is ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := a.Close(); closeErr != nil {
					c.log.Warn("Closing backends failed", logger.ErrorField(closeErr))
				}
			}()

			report, err := a.Engine.Screen(ctx, args[0])
			if err != nil {
				return err
			}
			return c.printJSON(report)
		},
	}
}
