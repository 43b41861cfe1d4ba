package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"xfriends/friends"
	"xfriends/models"
)

// actionCommands maps console verbs to relationship actions.
var actionCommands = []struct {
	name   string
	action models.FriendAction
	info   string
}{
	{"add", models.ActionRequestAdd, "send a friend request"},
	{"cancel", models.ActionRequestCancel, "withdraw a sent request"},
	{"approve", models.ActionRequestApprove, "accept an incoming request"},
	{"deny", models.ActionRequestDeny, "reject an incoming request"},
	{"remove", models.ActionRemove, "end a friendship"},
	{"block", models.ActionBlock, "block a user"},
	{"unblock", models.ActionUnblock, "unblock a user"},
}

// console renders a Session as text. Users are addressed either by their
// position in the last printed list or by id.
type console struct {
	session *friends.Session
	out     io.Writer
	timeout time.Duration
	tree    *commandTree

	mu        sync.Mutex
	lastInput string
	shown     []friends.Entity
	quit      bool
}

func newConsole(session *friends.Session, out io.Writer, timeout time.Duration) *console {
	c := &console{
		session: session,
		out:     out,
		timeout: timeout,
		tree:    newCommandTree(),
	}
	for _, ac := range actionCommands {
		c.tree.register([]string{ac.name}, c.actionCommand(ac.action), "<n|id>  "+ac.info)
	}
	c.tree.register([]string{"list"}, c.listCommand, "[bucket]  show one bucket or all of them")
	c.tree.register([]string{"search"}, c.searchCommand, "<text>  search right away")
	c.tree.register([]string{"reload"}, c.reloadCommand, "reload every bucket")
	c.tree.register([]string{"help"}, func([]string) string { return c.tree.help() }, "show this help")
	c.tree.register([]string{"quit"}, func([]string) string {
		c.mu.Lock()
		c.quit = true
		c.mu.Unlock()
		return ""
	}, "leave the console")
	return c
}

// onInput is fed the edit buffer after every keystroke. Plain text is a
// search query; lines starting with "/" are left for submit.
func (c *console) onInput(line string) {
	if strings.HasPrefix(line, "/") {
		return
	}
	c.mu.Lock()
	if line == c.lastInput {
		c.mu.Unlock()
		return
	}
	c.lastInput = line
	c.mu.Unlock()
	c.session.SetQuery(line)
}

// submit handles a finished line and reports whether the console should
// exit.
func (c *console) submit(line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/") {
		if out := c.tree.execute(line); out != "" {
			fmt.Fprintln(c.out, out)
		}
	} else {
		c.onInput(line)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quit
}

func (c *console) showResult(res friends.SearchResult) {
	if res.Err != nil {
		fmt.Fprintf(c.out, "search %q failed: %v\n", res.Query, res.Err)
	}
	fmt.Fprintf(c.out, "results for %q:\n", res.Query)
	c.show(res.Entities)
}

func (c *console) show(entities []friends.Entity) {
	c.mu.Lock()
	c.shown = entities
	c.mu.Unlock()

	if len(entities) == 0 {
		fmt.Fprintln(c.out, "  (nobody)")
		return
	}
	for i, e := range entities {
		fmt.Fprintf(c.out, "%3d. %s\n", i+1, formatEntity(e))
	}
}

func formatEntity(e friends.Entity) string {
	var b strings.Builder
	b.WriteString(e.DisplayName)
	if e.IsOnline {
		b.WriteString(" *")
	}
	fmt.Fprintf(&b, " [%s]", e.Relationship)
	actions := e.Relationship.Actions()
	if len(actions) > 0 {
		names := make([]string, 0, len(actions))
		for _, a := range actions {
			names = append(names, verbFor(a))
		}
		fmt.Fprintf(&b, " /%s", strings.Join(names, " /"))
	}
	fmt.Fprintf(&b, " (%s)", e.ID)
	return b.String()
}

func verbFor(action models.FriendAction) string {
	for _, ac := range actionCommands {
		if ac.action == action {
			return ac.name
		}
	}
	return string(action)
}

// target resolves a 1-based index into the last printed list, then a user
// id known to the session.
func (c *console) target(arg string) (friends.Entity, error) {
	c.mu.Lock()
	shown := c.shown
	c.mu.Unlock()

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(shown) {
			return friends.Entity{}, fmt.Errorf("no entry %d in the last list", n)
		}
		return shown[n-1], nil
	}
	for _, e := range shown {
		if e.ID == arg {
			return e, nil
		}
	}
	if e, ok := c.session.Lookup(arg); ok {
		return e, nil
	}
	return friends.Entity{ID: arg, DisplayName: arg}, nil
}

func (c *console) actionCommand(action models.FriendAction) commandFunc {
	return func(args []string) string {
		if len(args) != 1 {
			return "usage: /" + verbFor(action) + " <n|id>"
		}
		e, err := c.target(args[0])
		if err != nil {
			return err.Error()
		}
		if !e.Relationship.Allows(action) {
			return fmt.Sprintf("cannot %s %s while %s", verbFor(action), e.DisplayName, e.Relationship)
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.session.UpdateFriendship(ctx, e, action); err != nil {
			return err.Error()
		}
		return "ok"
	}
}

func (c *console) listCommand(args []string) string {
	if len(args) == 0 {
		var all []friends.Entity
		for _, r := range friends.Bucketed {
			all = append(all, c.session.Bucket(r)...)
		}
		c.show(all)
		return ""
	}
	r, ok := parseBucket(args[0])
	if !ok {
		return "unknown bucket " + args[0]
	}
	c.show(c.session.Bucket(r))
	return ""
}

func (c *console) searchCommand(args []string) string {
	if len(args) == 0 {
		return "usage: /search <text>"
	}
	query := strings.Join(args, " ")
	c.mu.Lock()
	c.lastInput = query
	c.mu.Unlock()
	if !c.session.SetQuery(query) {
		return "query too short"
	}
	return ""
}

func (c *console) reloadCommand([]string) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.session.Reload(ctx); err != nil {
		return err.Error()
	}
	return "reloaded"
}

// parseBucket accepts a relationship name or its listing type.
func parseBucket(name string) (friends.Relationship, bool) {
	name = strings.ToLower(name)
	for _, r := range friends.Bucketed {
		if name == r.String() || name == string(r.RequestType()) {
			return r, true
		}
	}
	return friends.RelationshipNone, false
}
