package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit profiles",
	}
	cmd.AddCommand(profileShowCmd(), profileUpdateCmd())
	return cmd
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [user-id]",
		Short: "Show a profile (your own by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			var userID string
			if len(args) == 1 {
				userID = args[0]
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			p, err := appCtx.Profile(ctx, userID)
			if err != nil {
				return err
			}
			printProfile(os.Stdout, p)
			return nil
		},
	}
}

func profileUpdateCmd() *cobra.Command {
	var name, username, avatar, bio string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name, username, avatar or bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			in := &chatv1.UpdateProfileRequest{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.DisplayName = &name
			}
			if flags.Changed("username") {
				in.Username = &username
			}
			if flags.Changed("avatar") {
				in.AvatarUrl = &avatar
			}
			if flags.Changed("bio") {
				in.Bio = &bio
			}
			if in.DisplayName == nil && in.Username == nil && in.AvatarUrl == nil && in.Bio == nil {
				return errors.New("nothing to update. set at least one of --name, --username, --avatar, --bio")
			}

			ctx, cancel := callCtx(cmd)
			defer cancel()
			p, err := appCtx.UpdateProfile(ctx, in)
			if err != nil {
				return err
			}
			printProfile(os.Stdout, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find people by username or display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			term := strings.Join(args, " ")
			ctx, cancel := callCtx(cmd)
			defer cancel()
			profiles, err := appCtx.Searcher().Search(ctx, term)
			if err != nil {
				return err
			}
			if len([]rune(strings.TrimSpace(term))) < client.MinSearchChars {
				fmt.Printf("Type at least %d characters to search\n", client.MinSearchChars)
				return nil
			}
			if len(profiles) == 0 {
				fmt.Println("No users found")
				return nil
			}
			for _, p := range profiles {
				fmt.Printf("%-24s @%-20s %s\n", p.DisplayName, p.Username, p.Id)
			}
			return nil
		},
	}
}
