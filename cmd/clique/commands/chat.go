package commands

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client/feed"
)

var (
	channelChat  bool
	historyLimit int32
)

func chatKind() string {
	if channelChat {
		return chatv1.ChatChannel
	}
	return chatv1.ChatConversation
}

func dmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dm <user-id>",
		Short: "Open (or create) the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			route, err := appCtx.StartConversation(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(path.Base(route))
			return nil
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List your conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			convs, err := appCtx.Conversations(ctx)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("No conversations yet. Start one with `clique dm <user-id>`")
				return nil
			}
			for _, c := range convs {
				who := "(unknown)"
				if c.Other != nil {
					who = c.Other.DisplayName
				}
				fmt.Printf("%s  %-24s %s\n", c.Id, who, c.LastMessage)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <chat-id>",
		Short: "Show recent messages of a conversation or channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			f, senders, err := appCtx.LoadFeed(ctx, chatKind(), args[0], historyLimit)
			printView(os.Stdout, f.View(), senderNames(senders))
			return err
		},
	}
	cmd.Flags().BoolVar(&channelChat, "channel", false, "chat id is a channel")
	cmd.Flags().Int32Var(&historyLimit, "limit", 0, "number of messages (server default when 0)")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <chat-id> <message...>",
		Short: "Send a message to a conversation or channel",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(); err != nil {
				return err
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			f := feed.New(args[0])
			f.Loaded(nil)
			m, err := appCtx.Send(ctx, f, chatKind(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("sent %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&channelChat, "channel", false, "chat id is a channel")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print incoming messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := requireSession()
			if err != nil {
				return err
			}
			names := map[string]string{cur.UserID: "you"}
			fmt.Fprintln(os.Stderr, "watching for messages, ctrl-c to stop")
			err = appCtx.Watch(cmd.Context(), func(m feed.Message) {
				printMessage(os.Stdout, m, names)
			})
			if err != nil {
				return err
			}
			if _, ok := appCtx.Session().Current(); !ok {
				fmt.Println("Session ended")
			}
			return nil
		},
	}
}

func senderNames(senders map[string]*chatv1.Profile) map[string]string {
	names := make(map[string]string, len(senders))
	for id, p := range senders {
		names[id] = p.DisplayName
	}
	return names
}
