package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client"
	"github.com/PaulBabatuyi/clique-gRPC/internal/client/feed"
)

// report prints err the way the client classifies it.
func report(w io.Writer, err error) {
	n := client.FromError(err)
	fmt.Fprintf(w, "%s: %s\n", n.Title, n.Description)

	fields := make([]string, 0, len(n.Fields))
	for f := range n.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", strings.ToLower(f), n.Fields[f])
	}
	if n.Kind == client.NoticeAuth {
		fmt.Fprintln(w, "run `clique signin` first")
	}
}

func printProfile(w io.Writer, p *chatv1.Profile) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "%s (@%s)  id=%s\n", p.DisplayName, p.Username, p.Id)
	if p.Bio != "" {
		fmt.Fprintf(w, "  %s\n", p.Bio)
	}
	if p.AvatarUrl != "" {
		fmt.Fprintf(w, "  avatar: %s\n", p.AvatarUrl)
	}
	if p.LastOnline != nil {
		fmt.Fprintf(w, "  last online: %s\n", p.LastOnline.Local().Format(time.RFC822))
	}
}

// printView renders a feed view with one header per sender group.
func printView(w io.Writer, v feed.View, names map[string]string) {
	switch v.Status {
	case feed.Loading:
		fmt.Fprintln(w, "Loading messages...")
		return
	case feed.LoadFailed:
		fmt.Fprintf(w, "Could not load messages: %v\n", v.Err)
		return
	case feed.Empty:
		fmt.Fprintln(w, "No messages yet. Start the conversation!")
		return
	}
	for _, g := range v.Groups {
		fmt.Fprintf(w, "%s  %s\n", senderName(names, g.SenderID), g.FirstAt.Local().Format("Jan 2 15:04"))
		for _, m := range g.Messages {
			fmt.Fprintf(w, "  %s%s\n", m.Content, stateSuffix(m.State))
		}
	}
}

func printMessage(w io.Writer, m feed.Message, names map[string]string) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.SentAt.Local().Format("15:04"), senderName(names, m.SenderID), m.Content)
}

func stateSuffix(s feed.State) string {
	switch s {
	case feed.Pending:
		return "  (sending)"
	case feed.Failed:
		return "  (failed)"
	default:
		return ""
	}
}

func senderName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}
