package main

import (
	"sort"
	"strings"

	"github.com/chzyer/readline"
)

type commandFunc func(args []string) string

type commandNode struct {
	children map[string]*commandNode
	name     string
	fn       commandFunc
	info     string
}

func newCommandNode(name string) *commandNode {
	return &commandNode{children: make(map[string]*commandNode), name: name}
}

// commandTree routes "/"-prefixed console lines. Keys are matched case
// insensitively.
type commandTree struct {
	root *commandNode
}

func newCommandTree() *commandTree {
	return &commandTree{root: newCommandNode("")}
}

func (t *commandTree) register(path []string, fn commandFunc, info string) {
	current := t.root
	for _, key := range path {
		k := strings.ToLower(key)
		if current.children[k] == nil {
			current.children[k] = newCommandNode(key)
		}
		current = current.children[k]
	}
	current.fn = fn
	current.info = info
}

// find walks the tree as far as the tokens of line allow and returns the
// deepest node together with the tokens left over as arguments.
func (t *commandTree) find(line string) (args []string, node *commandNode) {
	node = t.root
	args = strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	for len(args) > 0 && len(node.children) > 0 {
		next, ok := node.children[strings.ToLower(args[0])]
		if !ok {
			break
		}
		node = next
		args = args[1:]
	}
	return args, node
}

func (t *commandTree) execute(line string) string {
	args, node := t.find(line)
	if node == t.root {
		return "unknown command: " + strings.TrimSpace(line)
	}
	if node.fn == nil {
		return node.name + " needs a subcommand"
	}
	return node.fn(args)
}

// help lists every leaf command with its description.
func (t *commandTree) help() string {
	var lines []string
	var walk func(n *commandNode, prefix string)
	walk = func(n *commandNode, prefix string) {
		if n.fn != nil {
			line := prefix
			if n.info != "" {
				line += "  " + n.info
			}
			lines = append(lines, line)
		}
		for _, k := range sortedKeys(n.children) {
			walk(n.children[k], strings.TrimSpace(prefix+" "+n.children[k].name))
		}
	}
	for _, k := range sortedKeys(t.root.children) {
		walk(t.root.children[k], "/"+t.root.children[k].name)
	}
	return strings.Join(lines, "\n")
}

func (t *commandTree) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(t.root.children))
	for _, k := range sortedKeys(t.root.children) {
		items = append(items, completerFromNode(t.root.children[k], "/"+t.root.children[k].name))
	}
	return readline.NewPrefixCompleter(items...)
}

func completerFromNode(node *commandNode, name string) *readline.PrefixCompleter {
	if len(node.children) == 0 {
		return readline.PcItem(name)
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(node.children))
	for _, k := range sortedKeys(node.children) {
		items = append(items, completerFromNode(node.children[k], node.children[k].name))
	}
	return readline.PcItem(name, items...)
}

func sortedKeys(m map[string]*commandNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
