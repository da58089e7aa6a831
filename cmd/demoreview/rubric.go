/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"chainguard.dev/demoreview/internal/tables"
	"chainguard.dev/demoreview/rubric"
	"chainguard.dev/demoreview/rubric/builder"
	"chainguard.dev/demoreview/rubric/importer"
	"chainguard.dev/demoreview/rubric/store"
	"github.com/spf13/cobra"
)

func newRubricCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Manage grading rubrics",
	}
	cmd.AddCommand(
		rubricListCmd(a),
		rubricShowCmd(a),
		rubricValidateCmd(a),
		rubricCreateCmd(a),
		rubricEditCmd(a),
		rubricVersionsCmd(a),
		rubricRestoreCmd(a),
		rubricImportCmd(a),
	)
	return cmd
}

func (a *app) store() (*store.Store, error) {
	return store.New(a.cfg.RubricsDir)
}

func rubricListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current, valid rubrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.store()
			if err != nil {
				return err
			}
			entries, err := st.ListAvailable(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Filename, e.Name, e.Description})
			}
			return tables.Write(cmd.OutOrStdout(), []string{"Filename", "Name", "Description"}, rows)
		},
	}
}

func rubricShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the details of a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store()
			if err != nil {
				return err
			}
			r, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rubric.Render(cmd.OutOrStdout(), r)
		},
	}
}

func rubricValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <name|file|url>",
		Short: "Check a stored rubric, a rubric file or a rubric URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store()
			if err != nil {
				return err
			}

			var doc map[string]any
			if isRubricPath(args[0]) {
				imp, err := importer.New(st)
				if err != nil {
					return err
				}
				doc, err = imp.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
			} else if doc, err = st.LoadDocument(ctx, args[0]); err != nil {
				return err
			}

			if err := rubric.Check(doc); err != nil {
				return fmt.Errorf("rubric is invalid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rubric %q is valid (%s format)\n", args[0], rubric.DetectFormat(doc))
			return nil
		},
	}
}

// isRubricPath tells a file or URL apart from a store name.
func isRubricPath(arg string) bool {
	if strings.Contains(arg, "://") || strings.ContainsRune(arg, filepath.Separator) {
		return true
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func rubricCreateCmd(a *app) *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a hierarchical rubric interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.store()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\nCREATE NEW RUBRIC\n%s\n\n", banner, banner)

			r, err := builder.Run(ctx, builder.NewCreate(), a.in, out)
			if err != nil {
				return err
			}
			if err := r.Validate(); err != nil {
				return fmt.Errorf("validation failed, rubric not saved: %w", err)
			}

			if name == "" {
				name = r.RubricID
			}
			if err := importer.CheckName(name); err != nil {
				return err
			}
			if st.Exists(name) && !force {
				return fmt.Errorf("rubric %q already exists, use --force to replace it", name)
			}
			if err := st.Save(ctx, r, name, true); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nRubric saved to %s\n", st.Path(name))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Filename to save under (defaults to the rubric ID)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing rubric, backing it up first")
	return cmd
}

func rubricEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name>",
		Short: "Edit a rubric interactively, backing up the current version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store()
			if err != nil {
				return err
			}
			current, err := st.Load(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\nEDIT RUBRIC: %s\n%s\n\n", banner, current.Name, banner)

			edited, err := builder.Run(ctx, builder.NewEdit(current), a.in, out)
			if err != nil {
				return err
			}
			final, err := builder.Finalize(edited)
			if err != nil {
				return err
			}
			if err := st.Save(ctx, final, args[0], true); err != nil {
				return err
			}
			if final.Format() == rubric.FormatHierarchical {
				fmt.Fprintf(out, "\nRubric updated to version %s\n", final.Version)
			} else {
				fmt.Fprintln(out, "\nRubric updated")
			}
			return nil
		},
	}
}

func rubricVersionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <name>",
		Short: "List the current version and backups of a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store()
			if err != nil {
				return err
			}
			versions, err := st.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				return fmt.Errorf("rubric %q: %w", args[0], store.ErrNotFound)
			}
			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{v.Version, string(v.Type), v.Timestamp, v.Filename})
			}
			return tables.Write(cmd.OutOrStdout(), []string{"Version", "Type", "Timestamp", "File"}, rows)
		},
	}
}

func rubricRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name> <version>",
		Short: "Make a backed up version current again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store()
			if err != nil {
				return err
			}
			if err := st.Restore(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to version %s\n", args[0], args[1])
			return nil
		},
	}
}

func rubricImportCmd(a *app) *cobra.Command {
	var name string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file|url>",
		Short: "Import a JSON or YAML rubric from a file or an http(s) URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store()
			if err != nil {
				return err
			}
			imp, err := importer.New(st)
			if err != nil {
				return err
			}
			doc, err := imp.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			if err := rubric.Check(doc); err != nil {
				return fmt.Errorf("rubric is invalid: %w", err)
			}

			if name == "" {
				name = importer.SuggestName(doc)
			}
			if err := imp.Save(ctx, doc, name, overwrite); err != nil {
				if errors.Is(err, importer.ErrExists) {
					return fmt.Errorf("%w, use --overwrite to replace it (the current version is backed up)", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported rubric as %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Filename to save under (derived from the rubric name by default)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing rubric, backing it up first")
	return cmd
}
