package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			_, err := requireSession()
			return err
		},
	}
	cmd.AddCommand(groupCreateCmd(), groupListCmd(), groupShowCmd(), groupInviteCmd())
	return cmd
}

func groupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group you own",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().CreateGroup(ctx, &chatv1.CreateGroupRequest{Name: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Printf("created group %s (%s)\n", resp.Group.Name, resp.Group.Id)
			return nil
		},
	}
}

func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the groups you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().ListGroups(ctx, &chatv1.ListGroupsRequest{})
			if err != nil {
				return err
			}
			if len(resp.Groups) == 0 {
				fmt.Println("No groups yet")
				return nil
			}
			for _, g := range resp.Groups {
				role := "member"
				if g.IsAdmin {
					role = "admin"
				}
				fmt.Printf("%s  %-24s %d members  %s\n", g.Id, g.Name, len(g.MemberIds), role)
			}
			return nil
		},
	}
}

func groupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show a group with its channels and members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().GetGroup(ctx, &chatv1.GetGroupRequest{GroupId: args[0]})
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", resp.Group.Name, resp.Group.Id)
			fmt.Println("channels:")
			for _, ch := range resp.Channels {
				fmt.Printf("  #%-20s %s\n", ch.Name, client.ChannelPath(ch.GroupId, ch.Id))
			}
			fmt.Println("members:")
			for _, m := range resp.Members {
				fmt.Printf("  %s (@%s)\n", m.DisplayName, m.Username)
			}
			return nil
		},
	}
}

func groupInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <group-id> <user-id>",
		Short: "Add a user to a group you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().InviteMember(ctx, &chatv1.InviteMemberRequest{GroupId: args[0], UserId: args[1]})
			if err != nil {
				return err
			}
			fmt.Printf("%s now has %d members\n", resp.Group.Name, len(resp.Group.MemberIds))
			return nil
		},
	}
}

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage group channels",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			_, err := requireSession()
			return err
		},
	}
	cmd.AddCommand(channelCreateCmd(), channelListCmd())
	return cmd
}

func channelCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <group-id> <name>",
		Short: "Create a channel in a group you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().CreateChannel(ctx, &chatv1.CreateChannelRequest{GroupId: args[0], Name: args[1]})
			if err != nil {
				return err
			}
			fmt.Printf("created #%s (%s)\n", resp.Channel.Name, resp.Channel.Id)
			return nil
		},
	}
}

func channelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <group-id>",
		Short: "List a group's channels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			resp, err := appCtx.Backend().ListChannels(ctx, &chatv1.ListChannelsRequest{GroupId: args[0]})
			if err != nil {
				return err
			}
			if len(resp.Channels) == 0 {
				fmt.Println("No channels yet")
				return nil
			}
			for _, ch := range resp.Channels {
				fmt.Printf("%s  #%s\n", ch.Id, ch.Name)
			}
			return nil
		},
	}
}
