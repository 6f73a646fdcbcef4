package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/editor"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				decks, err := s.Editor.ListDecks(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, decks)
				}
				if len(decks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No decks")
					return nil
				}
				rows := make([][]string, 0, len(decks))
				for _, d := range decks {
					rows = append(rows, []string{d.ID, d.Name, d.ModifiedAt.Local().Format("2006-01-02 15:04")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Modified"}, rows, nil, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				d, err := s.Editor.CreateDeck(c, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created deck %s (%s)\n", d.Name, d.ID)
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <deck>",
		Short: "Show a deck with resolved prices",
		Long:  "Show a deck by id or name. Totals cover the main deck and sideboard.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				id, err := resolveDeckID(c, s, args[0])
				if err != nil {
					return err
				}
				doc, err := s.Editor.Document(c, id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc.Name)
				fmt.Fprintln(cmd.OutOrStdout(), renderDocument(doc))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the deck document as JSON")
	return cmd
}

func renderDocument(doc deckexport.Document) string {
	headers := []string{"Zone", "Qty", "Card", "Set", "No.", "Finish", "Unit", "Total", "Source"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

	var rows [][]string
	for _, z := range deck.Zones() {
		for _, e := range doc.Zones[z] {
			unit, line := "-", "-"
			if e.UnitPrice != nil {
				unit = e.UnitPrice.String()
				line = (*e.UnitPrice * deck.Price(e.Count)).String()
			}
			rows = append(rows, []string{
				string(z),
				strconv.Itoa(e.Count),
				e.Name,
				strings.ToUpper(e.Printing.SetCode),
				e.Printing.CollectorNumber,
				string(e.Finish),
				unit,
				line,
				string(e.PriceSource),
			})
		}
	}

	footer := []string{"", "", "", "", "", "", "Total", doc.Total.String(), ""}
	if doc.MissingPrices > 0 {
		footer[8] = fmt.Sprintf("%d unpriced", doc.MissingPrices)
	}
	return renderTable(headers, rows, aligns, footer)
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var req editor.ImportRequest
	var deckRef string
	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Import a deck list",
		Long:  "Import an Arena list, plain text list, or JSON/YAML deck document. Reads stdin when no file or \"-\" is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			req.Content = content
			if len(args) == 1 && (req.Format == "" || req.Format == editor.ImportAuto) {
				req.Format = formatFromExtension(args[0])
			}

			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				if deckRef != "" {
					id, err := resolveDeckID(c, s, deckRef)
					if err != nil {
						return err
					}
					req.DeckID = id
				}

				result, err := s.Editor.Import(c, req)
				if err != nil {
					return err
				}
				for _, w := range result.Warnings {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				for _, e := range result.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", e)
				}

				verb := "Imported into"
				if result.Created {
					verb = "Created"
				}
				d := result.Deck
				fmt.Fprintf(cmd.OutOrStdout(), "%s deck %s (%s) from %s: %d main, %d sideboard, %d tech ideas\n",
					verb, d.Name, d.ID, result.Format,
					deck.ZoneCount(d, deck.ZoneMain), deck.ZoneCount(d, deck.ZoneSideboard), deck.ZoneCount(d, deck.ZoneTechIdeas))
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&deckRef, "deck", "", "Import into an existing deck (id or name)")
	flags.StringVar(&req.Name, "name", "", "Deck name")
	flags.StringVar(&req.Format, "format", editor.ImportAuto, "Input format: auto, arena, text, json or yaml")
	flags.BoolVar(&req.Replace, "replace", false, "Replace the existing deck's cards")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read deck list: %w", err)
	}
	return string(data), nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return editor.ImportJSON
	case ".yaml", ".yml":
		return editor.ImportYAML
	default:
		return editor.ImportAuto
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "move <deck> <key[=count]>...",
		Short: "Move card stacks between zones",
		Long: "Move stacks by identity key (name|printing|finish) from one zone to another.\n" +
			"A count after \"=\" moves only that many copies.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseMoveArgs(from, to, args[1:])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				id, err := resolveDeckID(c, s, args[0])
				if err != nil {
					return err
				}
				_, report, err := s.Editor.Move(c, id, req)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, m := range report.Moved {
					fmt.Fprintf(out, "moved %d %s (%d left in %s)\n", m.Count, m.Key, m.Remaining, req.From)
				}
				for _, sk := range report.Skipped {
					fmt.Fprintf(out, "skipped %s: %s\n", sk.Key, sk.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", string(deck.ZoneMain), "Source zone")
	cmd.Flags().StringVar(&to, "to", string(deck.ZoneSideboard), "Destination zone")
	return cmd
}

func parseMoveArgs(from, to string, keys []string) (deck.MoveRequest, error) {
	src, err := deck.ParseZone(from)
	if err != nil {
		return deck.MoveRequest{}, err
	}
	dst, err := deck.ParseZone(to)
	if err != nil {
		return deck.MoveRequest{}, err
	}

	req := deck.MoveRequest{From: src, To: dst}
	for _, arg := range keys {
		key := arg
		if i := strings.LastIndex(arg, "="); i >= 0 {
			n, err := strconv.Atoi(arg[i+1:])
			if err != nil {
				return deck.MoveRequest{}, fmt.Errorf("invalid count in %q", arg)
			}
			key = arg[:i]
			if req.Quantities == nil {
				req.Quantities = make(map[string]int)
			}
			req.Quantities[key] = n
		}
		req.Keys = append(req.Keys, key)
	}
	return req, nil
}

func newConsolidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate <deck>",
		Short: "Merge identical stacks in every zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				id, err := resolveDeckID(c, s, args[0])
				if err != nil {
					return err
				}
				d, err := s.Editor.Consolidate(c, id)
				if err != nil {
					return err
				}
				for _, z := range deck.Zones() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stacks, %d cards\n", z, len(d.Zone(z)), deck.ZoneCount(d, z))
				}
				return nil
			})
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <deck>",
		Short: "Fetch current prices for a deck's printings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				id, err := resolveDeckID(c, s, args[0])
				if err != nil {
					return err
				}
				_, report, err := s.Editor.RefreshPrices(c, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d stacks, updated %d\n", report.Checked, report.Updated)
				for _, key := range report.NotFound {
					fmt.Fprintf(cmd.ErrOrStderr(), "no price data for %s\n", key)
				}
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format, output string
	var headers, tech bool
	cmd := &cobra.Command{
		Use:   "export <deck>",
		Short: "Export a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deckexport.ParseFormat(format)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				id, err := resolveDeckID(c, s, args[0])
				if err != nil {
					return err
				}
				out, err := s.Editor.Export(c, id, &deckexport.ExportOptions{
					Format:         f,
					IncludeHeaders: headers,
					IncludeTech:    tech,
				})
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = io.WriteString(cmd.OutOrStdout(), out.Content)
					return err
				}
				if err := os.WriteFile(output, []byte(out.Content), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", string(deckexport.FormatArena), "Output format: arena, plaintext, mtgo, json or yaml")
	flags.StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	flags.BoolVar(&headers, "headers", true, "Include zone headers in text formats")
	flags.BoolVar(&tech, "tech", false, "Include tech ideas in text formats")
	return cmd
}

func newPreferCommand(ctx *commandContext) *cobra.Command {
	var ref deck.PrintingRef
	var forget bool
	cmd := &cobra.Command{
		Use:   "prefer <card name>",
		Short: "Set or clear the preferred printing of a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				if forget {
					if err := s.Editor.ClearPreference(c, name); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared preferred printing of %s\n", name)
					return nil
				}
				ref.SetCode = strings.ToLower(ref.SetCode)
				if err := s.Editor.SetPreference(c, name, ref); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now prefers %s\n", name, deck.PrintingKey(ref))
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&ref.ScryfallID, "id", "", "Scryfall ID of the printing")
	flags.StringVar(&ref.SetCode, "set", "", "Set code of the printing")
	flags.StringVar(&ref.CollectorNumber, "number", "", "Collector number of the printing")
	flags.BoolVar(&forget, "clear", false, "Forget the preferred printing")
	cmd.MarkFlagsMutuallyExclusive("clear", "id")
	cmd.MarkFlagsMutuallyExclusive("clear", "set")
	cmd.MarkFlagsRequiredTogether("set", "number")
	return cmd
}
