package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	worldCmd := &cobra.Command{
		Use:   "world",
		Short: "Manage the world library",
		Long:  "Worlds are named settings with playable characters that new games can start from with new --world.",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a world",
		Long: `Add a world to the library. The description comes from --description,
--description-file or stdin. Each --character is "Name=description".`,
		Args: cobra.ExactArgs(1),
		Run:  runWorldAdd,
	}
	addCmd.Flags().StringP("description", "d", "", "World description")
	addCmd.Flags().String("description-file", "", "Read the world description from a file")
	addCmd.Flags().StringArrayP("character", "c", nil, `Playable character as "Name=description" (repeatable)`)
	addCmd.Flags().Bool("replace", false, "Replace a world of the same name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List worlds",
		Run:   runWorldList,
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a world",
		Args:  cobra.ExactArgs(1),
		Run:   runWorldShow,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a world",
		Long:  "Remove a world from the library. Games started from it keep their own copy of its description.",
		Args:  cobra.ExactArgs(1),
		Run:   runWorldRm,
	}

	worldCmd.AddCommand(addCmd, listCmd, showCmd, rmCmd)
	RootCmd.AddCommand(worldCmd)
}

func runWorldAdd(cmd *cobra.Command, args []string) {
	desc, _ := cmd.Flags().GetString("description")
	descFile, _ := cmd.Flags().GetString("description-file")
	specs, _ := cmd.Flags().GetStringArray("character")
	replace, _ := cmd.Flags().GetBool("replace")

	desc, err := readText(desc, descFile)
	if err != nil {
		exitErr("read description", err)
	}
	chars, err := parseCharacters(specs)
	if err != nil {
		exitErr("world add", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	w, err := s.AddWorld(cmd.Context(), store.AddWorldParams{
		Name:        args[0],
		Description: desc,
		Characters:  chars,
		Replace:     replace,
	})
	if err != nil {
		exitErr("world add", err)
	}
	printJSON(w)
}

func runWorldList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	worlds, err := s.ListWorlds(cmd.Context())
	if err != nil {
		exitErr("world list", err)
	}

	if textFormat() {
		for _, w := range worlds {
			fmt.Printf("%-24s %s\n", w.Name, strings.Join(w.CharacterNames(), ", "))
		}
		return
	}
	printJSON(worlds)
}

func runWorldShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	w, err := s.GetWorld(cmd.Context(), args[0])
	if err != nil {
		exitErr("world show", err)
	}

	if textFormat() {
		printWorld(w)
		return
	}
	printJSON(w)
}

func runWorldRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.RmWorld(cmd.Context(), args[0]); err != nil {
		exitErr("world rm", err)
	}
	fmt.Printf("removed world %s\n", args[0])
}

// parseCharacters reads "Name=description" pairs. The description may be
// empty; the name may not, nor may it repeat.
func parseCharacters(specs []string) (map[string]string, error) {
	chars := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, desc, _ := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("character %q has no name", spec)
		}
		for n := range chars {
			if strings.EqualFold(n, name) {
				return nil, fmt.Errorf("character %q given twice", name)
			}
		}
		chars[name] = strings.TrimSpace(desc)
	}
	return chars, nil
}

func printWorld(w *model.World) {
	fmt.Printf("%s\n\n%s\n", w.Name, strings.TrimSpace(w.Description))
	if len(w.Characters) == 0 {
		return
	}
	fmt.Println("\nCharacters:")
	for _, n := range w.CharacterNames() {
		if d := w.Characters[n]; d != "" {
			fmt.Printf("  %s: %s\n", n, d)
		} else {
			fmt.Printf("  %s\n", n)
		}
	}
}
