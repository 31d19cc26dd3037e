package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/semmy-space/nbsecrets/internal/output"
)

// SchemaCmd outputs the machine-readable command tree, for wrappers that
// drive nbsecrets from notebooks and scripts
type SchemaCmd struct {
	Command string `arg:"" optional:"" help:"Command path to show schema for (e.g., 'auth login')"`
}

// SchemaNode represents a node in the command tree
type SchemaNode struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"` // "application", "command", "argument"
	Help     string        `json:"help,omitempty"`
	Aliases  []string      `json:"aliases,omitempty"`
	Children []*SchemaNode `json:"commands,omitempty"`
	Flags    []*SchemaFlag `json:"flags,omitempty"`
	Args     []*SchemaArg  `json:"args,omitempty"`
}

// SchemaFlag represents a command flag
type SchemaFlag struct {
	Name     string   `json:"name"`
	Short    string   `json:"short,omitempty"`
	Help     string   `json:"help,omitempty"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Default  string   `json:"default,omitempty"`
	Env      []string `json:"env,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// SchemaArg represents a positional argument
type SchemaArg struct {
	Name     string `json:"name"`
	Help     string `json:"help,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Run executes the schema command. The tree is always JSON.
func (cmd *SchemaCmd) Run(ctx *kong.Context, streams Streams) error {
	target := ctx.Model.Node
	if cmd.Command != "" {
		var err error
		target, err = findNodeByPath(target, cmd.Command)
		if err != nil {
			return &output.CLIError{
				Message:  err.Error(),
				Hint:     "Run: nbsecrets schema",
				ExitCode: output.ExitUsage,
			}
		}
	}

	return output.NewWithWriters("json", streams.Out, streams.Err).Print(buildSchemaNode(target))
}

// buildSchemaNode recursively builds schema from Kong node, skipping hidden nodes
func buildSchemaNode(node *kong.Node) *SchemaNode {
	schema := &SchemaNode{
		Name:    node.Name,
		Type:    nodeTypeString(node.Type),
		Help:    node.Help,
		Aliases: node.Aliases,
	}

	for _, flag := range node.Flags {
		if flag.Name == "help" || flag.Hidden {
			continue
		}

		typeName := "string"
		if flag.Target.IsValid() {
			typeName = flag.Target.Type().String()
		}

		schemaFlag := &SchemaFlag{
			Name:     flag.Name,
			Help:     flag.Help,
			Type:     typeName,
			Required: flag.Required,
			Default:  flag.Default,
			Env:      flag.Envs,
		}
		if flag.Short != 0 {
			schemaFlag.Short = string(flag.Short)
		}
		if flag.Enum != "" {
			schemaFlag.Enum = strings.Split(flag.Enum, ",")
		}

		schema.Flags = append(schema.Flags, schemaFlag)
	}

	for _, arg := range node.Positional {
		schema.Args = append(schema.Args, &SchemaArg{
			Name:     arg.Name,
			Help:     arg.Help,
			Required: arg.Required,
		})
	}

	for _, child := range node.Children {
		if child.Hidden {
			continue
		}
		schema.Children = append(schema.Children, buildSchemaNode(child))
	}

	return schema
}

// findNodeByPath walks the node tree to find a specific command path
func findNodeByPath(root *kong.Node, path string) (*kong.Node, error) {
	current := root

	for _, part := range strings.Fields(path) {
		next := (*kong.Node)(nil)
		for _, child := range current.Children {
			if child.Name == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("command not found: %s", path)
		}
		current = next
	}

	return current, nil
}

// nodeTypeString converts Kong node type to string
func nodeTypeString(t kong.NodeType) string {
	switch t {
	case kong.ApplicationNode:
		return "application"
	case kong.CommandNode:
		return "command"
	case kong.ArgumentNode:
		return "argument"
	default:
		return "unknown"
	}
}
