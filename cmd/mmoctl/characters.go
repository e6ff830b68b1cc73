package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mmoclient/internal/app/session"
	"mmoclient/internal/pkg/errs"
)

// NewCharactersCmd creates the characters subcommand.
func NewCharactersCmd(c *client) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "characters",
		Short: "List your characters",
		Long: `Fetch the character roster from the backend and store it in the session. With
--cached the stored roster is shown without a request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cached {
				roster, err := c.gateway.ListCharacters(cmd.Context())
				if err != nil {
					return err
				}
				printWarnings(cmd, roster.Warnings)
			}

			printRoster(cmd, c.session.Characters(), c.session.SelectedCharacterID())
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "show the stored roster without contacting the backend")

	return cmd
}

// NewCharacterCmd creates the character subcommand.
func NewCharacterCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "character <id>",
		Short: "Show one character with position and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			res, err := c.gateway.GetCharacter(cmd.Context(), id)
			if err != nil {
				return err
			}
			printWarnings(cmd, res.Warnings)

			ch := res.Character
			fmt.Fprintf(cmd.OutOrStdout(), "%s (#%d)\n", ch.Name, ch.CharacterID)
			fmt.Fprintf(cmd.OutOrStdout(), "  class:    %s\n", ch.CharacterClass)
			fmt.Fprintf(cmd.OutOrStdout(), "  level:    %d\n", ch.Level)
			fmt.Fprintf(cmd.OutOrStdout(), "  health:   %d\n", ch.Health)
			fmt.Fprintf(cmd.OutOrStdout(), "  mana:     %d\n", ch.Mana)
			fmt.Fprintf(cmd.OutOrStdout(), "  position: %g, %g, %g\n", ch.X, ch.Y, ch.Z)
			return nil
		},
	}
}

// NewCreateCmd creates the create subcommand.
func NewCreateCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [class]",
		Short: "Create a character",
		Long: `Create a character. The class defaults to warrior on the backend. The roster is
not refreshed; run characters afterwards.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			class := ""
			if len(args) == 2 {
				class = args[1]
			}

			res, err := c.gateway.CreateCharacter(cmd.Context(), args[0], class)
			if err != nil {
				return err
			}
			printWarnings(cmd, res.Warnings)

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s the %s (#%d)\n", res.Character.Name, res.Character.CharacterClass, res.Character.CharacterID)
			return nil
		},
	}
}

// NewSelectCmd creates the select subcommand.
func NewSelectCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Select a character from the stored roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := c.session.SelectCharacter(id); err != nil {
				return fmt.Errorf("character %d is not in the roster; run characters to refresh it: %w", id, err)
			}

			selected := c.session.SelectedCharacter()
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (#%d)\n", selected.Name, selected.CharacterID)
			return nil
		},
	}
}

// NewSavePositionCmd creates the save-position subcommand.
func NewSavePositionCmd(c *client) *cobra.Command {
	var characterID int

	cmd := &cobra.Command{
		Use:   "save-position <x> <y> <z>",
		Short: "Save a character's world position",
		Long:  `Save the world position of the selected character, or of --character.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var coords [3]float64
			for i, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("coordinate %q is not a number", arg)
				}
				coords[i] = v
			}

			id := characterID
			if id == 0 {
				id = c.session.SelectedCharacterID()
			}
			if id == 0 {
				return fmt.Errorf("no character selected; run select <id> or pass --character")
			}

			if err := c.gateway.SavePosition(cmd.Context(), id, coords[0], coords[1], coords[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved position of #%d\n", id)
			return nil
		},
	}

	cmd.Flags().IntVar(&characterID, "character", 0, "character id (defaults to the selected character)")

	return cmd
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("character id must be a positive integer, got %q", arg)
	}
	return id, nil
}

func printRoster(cmd *cobra.Command, roster []session.Character, selected int) {
	if len(roster) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No characters")
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tCLASS\tLEVEL")
	for _, ch := range roster {
		marker := ""
		if ch.CharacterID == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n", marker, ch.CharacterID, ch.Name, ch.CharacterClass, ch.Level)
	}
	_ = w.Flush()
}

func printWarnings(cmd *cobra.Command, warnings []*errs.CustomError) {
	for _, w := range warnings {
		cmd.PrintErrln("warning:", w.Message)
	}
}
