package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"token-deploy-wizard/internal/address"
	"token-deploy-wizard/internal/app"
	"token-deploy-wizard/internal/config"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/form"
	"token-deploy-wizard/internal/preview"
	"token-deploy-wizard/internal/tui"
	"token-deploy-wizard/internal/validation"
	"token-deploy-wizard/internal/wizard"
)

var errInvalidDraft = errors.New("draft is invalid")

func newValidateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <draft-file>",
		Short: "Check a draft file against the wizard rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			validator, err := address.Lookup(cfg.Network)
			if err != nil {
				return err
			}
			draft, err := readDraft(args[0])
			if err != nil {
				return err
			}

			engine := validation.NewEngine(validator)
			res := validation.Merge(engine.BasicInfo(draft), engine.Metadata(draft.Metadata))
			out := cmd.OutOrStdout()
			if !res.Valid {
				printErrors(out, res.Errors)
				return errInvalidDraft
			}
			fmt.Fprintf(out, "%s (%s) is valid for %s\n", draft.Name, draft.Symbol, validator.Network())
			return nil
		},
	}
}

func newFeesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fees <draft-file>",
		Short: "Quote the deployment fee of a draft file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			schedule, err := cfg.Schedule()
			if err != nil {
				return err
			}
			calculator, err := fees.NewCalculator(schedule)
			if err != nil {
				return err
			}
			draft, err := readDraft(args[0])
			if err != nil {
				return err
			}
			printFees(cmd.OutOrStdout(), calculator.Quote(draft))
			return nil
		},
	}
}

func newDeployCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <draft-file>",
		Short: "Run a draft file through the wizard and deploy it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			file, err := config.LoadDraft(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			components, cleanup, err := app.Build(ctx, cfg, c.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			w := wizard.New(wizard.Options{
				Engine:          components.Engine,
				Calculator:      components.Calculator,
				Deployer:        components.Deployer,
				Network:         components.Network,
				DeploymentStore: components.Stores.Deployments,
				EventStore:      components.Stores.Events,
				Logger:          c.logger,
				Verbose:         cfg.Verbose,
			})

			out := cmd.OutOrStdout()
			if err := fillWizard(ctx, w, file, filepath.Dir(args[0])); err != nil {
				var verr *wizard.ValidationError
				if errors.As(err, &verr) {
					printErrors(out, verr.Result.Errors)
					return errInvalidDraft
				}
				return err
			}

			printFees(out, w.Fees())
			st, err := w.Deploy(ctx)
			if err != nil {
				return err
			}
			if st.State == domain.DeploymentFailed {
				return fmt.Errorf("deployment failed: %s", st.Message)
			}
			fmt.Fprintf(out, "Deployed %s\n", w.Draft().Symbol)
			if st.Result != nil {
				fmt.Fprintf(out, "  transaction: %s\n", st.Result.TransactionID)
				if st.Result.ContractID != "" {
					fmt.Fprintf(out, "  contract:    %s\n", st.Result.ContractID)
				}
			}
			return nil
		},
	}
}

func newWizardCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Run the interactive wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			components, cleanup, err := app.Build(ctx, cfg, c.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			// The alt screen owns stdout while the wizard runs.
			c.logger.SetOutput(io.Discard)
			return tui.Run(ctx, tui.Options{
				Engine:          components.Engine,
				Calculator:      components.Calculator,
				Deployer:        components.Deployer,
				Network:         components.Network,
				DeploymentStore: components.Stores.Deployments,
				EventStore:      components.Stores.Events,
				Logger:          c.logger,
			})
		},
	}
}

// fillWizard walks the wizard to Review with the contents of file.
// Relative image paths resolve against dir.
func fillWizard(ctx context.Context, w *wizard.Wizard, file config.DraftFile, dir string) error {
	if _, err := w.UpdateBasic(file.Patch()); err != nil {
		return err
	}
	if _, err := w.Next(); err != nil {
		return err
	}

	if !file.HasMetadata() {
		_, err := w.Skip()
		return err
	}
	if file.Description != "" {
		if _, err := w.SetDescription(file.Description); err != nil {
			return err
		}
	}
	if file.Image != "" {
		img, err := preview.LoadFile(resolvePath(dir, file.Image), validation.MaxImageBytes)
		if err != nil {
			return err
		}
		if _, err := w.SelectImage(ctx, img); err != nil {
			return err
		}
	}
	_, err := w.Next()
	return err
}

// readDraft loads a draft file into a TokenDraft without validating it.
func readDraft(path string) (domain.TokenDraft, error) {
	file, err := config.LoadDraft(path)
	if err != nil {
		return domain.TokenDraft{}, err
	}

	store := form.NewStore()
	store.Update(file.Patch())
	if file.HasMetadata() {
		m := &domain.Metadata{Description: file.Description}
		if file.Image != "" {
			img, err := preview.LoadFile(resolvePath(filepath.Dir(path), file.Image), validation.MaxImageBytes)
			if err != nil {
				return domain.TokenDraft{}, err
			}
			m.Image = img
		}
		store.SetMetadata(m)
	}
	return store.Draft(), nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func printErrors(out io.Writer, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(out, "%s: %s\n", f, errs[f])
	}
}

func printFees(out io.Writer, q domain.FeeBreakdown) {
	fmt.Fprintf(out, "Base fee:     %s %s\n", q.BaseFee, q.Unit)
	fmt.Fprintf(out, "Metadata fee: %s %s\n", q.MetadataFee, q.Unit)
	fmt.Fprintf(out, "Total:        %s %s\n", q.TotalFee, q.Unit)
}
