package client

import "strings"

// View names a screen of the client.
type View string

const (
	ViewLogin        View = "login"
	ViewRegister     View = "register"
	ViewMessages     View = "messages"
	ViewConversation View = "conversation"
	ViewProfile      View = "profile"
	ViewSettings     View = "settings"
	ViewGroup        View = "group"
	ViewChannel      View = "channel"
	ViewNotFound     View = "not_found"
)

const (
	HomePath  = "/messages"
	LoginPath = "/login"
)

// Route is the outcome of resolving a path. When Redirect is set the caller
// should navigate there instead of rendering View.
type Route struct {
	View     View
	Params   map[string]string
	Redirect string
}

type routePattern struct {
	segments []string
	view     View
	public   bool
}

var routes = []routePattern{
	{segments: []string{"login"}, view: ViewLogin, public: true},
	{segments: []string{"register"}, view: ViewRegister, public: true},
	{segments: []string{"messages"}, view: ViewMessages},
	{segments: []string{"messages", ":conversationId"}, view: ViewConversation},
	{segments: []string{"profile"}, view: ViewProfile},
	{segments: []string{"settings"}, view: ViewSettings},
	{segments: []string{"groups", ":groupId"}, view: ViewGroup},
	{segments: []string{"groups", ":groupId", "channels", ":channelId"}, view: ViewChannel},
}

// DefaultPath is where "/" and unknown paths lead.
func DefaultPath(authenticated bool) string {
	if authenticated {
		return HomePath
	}
	return LoginPath
}

// Resolve matches path against the known routes and applies the auth guard:
// protected views redirect anonymous callers to the login view, and the
// login and register views redirect signed-in callers home.
func Resolve(path string, authenticated bool) Route {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return Route{Redirect: DefaultPath(authenticated)}
	}

	for _, rt := range routes {
		params, ok := rt.match(parts)
		if !ok {
			continue
		}
		switch {
		case !rt.public && !authenticated:
			return Route{View: rt.view, Params: params, Redirect: LoginPath}
		case rt.public && authenticated:
			return Route{View: rt.view, Params: params, Redirect: HomePath}
		}
		return Route{View: rt.view, Params: params}
	}
	return Route{View: ViewNotFound, Redirect: DefaultPath(authenticated)}
}

func (p routePattern) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(p.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range p.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[name] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// ConversationPath is the route of a direct conversation.
func ConversationPath(id string) string { return HomePath + "/" + id }

// ChannelPath is the route of a channel inside a group.
func ChannelPath(groupID, channelID string) string {
	return "/groups/" + groupID + "/channels/" + channelID
}
