// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/propcodec"
)

func (a *app) schemaCommand() *cli.Command {
	var showTree bool
	return &cli.Command{
		Name:    "schema",
		Summary: "Print a table's flattened props in wire order",
		Description: `Flatten a table from a schema file and print its props in the order
they are sent: index, dotted path, type, encoded width, flags,
priority and owning proxy node. With --tree, also print the proxy
tree with each node's table-proxy index.`,
		Usage: "dtinspect schema --schema FILE [--table NAME] [--tree]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("schema", pflag.ContinueOnError)
			a.schemaFlags(flagSet)
			flagSet.BoolVar(&showTree, "tree", false, "also print the proxy tree")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			_, root, err := a.loadRoot()
			if err != nil {
				return err
			}
			precalc, err := datatable.Precalculate(root)
			if err != nil {
				return err
			}
			a.printSchema(precalc, showTree)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "List the flattened props of the only root table",
				Command:     "dtinspect schema --schema player.yaml",
			},
			{
				Description: "Include the proxy tree",
				Command:     "dtinspect schema --schema world.jsonc --table DT_Player --tree",
			},
		},
	}
}

func (a *app) printSchema(precalc *datatable.Precalc, showTree bool) {
	p := a.printer()
	p.title("%s: %d props, %d nodes, %d table proxies",
		precalc.Table().Name, precalc.Len(), precalc.NumNodes(), precalc.NumTableProxies())

	rows := make([][]string, precalc.Len())
	for i := range precalc.Len() {
		leaf := precalc.Leaf(i)
		rows[i] = []string{
			strconv.Itoa(i),
			leaf.Path,
			leaf.Prop.Type.String(),
			encodedWidth(leaf.Prop),
			leaf.Prop.Flags.String(),
			strconv.Itoa(int(leaf.Prop.EffectivePriority())),
			strconv.Itoa(leaf.Node),
			leaf.Table,
		}
	}
	p.table([]string{"#", "PATH", "TYPE", "WIDTH", "FLAGS", "PRIORITY", "NODE", "TABLE"}, rows)

	if !showTree {
		return
	}
	p.line("")
	p.title("proxy tree")
	a.printNode(p, precalc, 0, 0)
}

func (a *app) printNode(p *printer, precalc *datatable.Precalc, index, depth int) {
	node := precalc.Node(index)
	name := node.Name
	if name == "" {
		name = precalc.Table().Name
	}
	proxy := "always"
	if node.TableProxyIndex != datatable.NoProxy {
		proxy = "proxy " + strconv.Itoa(node.TableProxyIndex)
	}
	p.line("%s%s  %s", strings.Repeat("  ", depth+1), name,
		p.style(faintStyle, fmt.Sprintf("[node %d, %s, %d leaves]", node.RecursiveIndex, proxy, len(node.Leaves))))
	for _, child := range node.Children {
		a.printNode(p, precalc, child, depth+1)
	}
}

// encodedWidth describes how many bits a prop takes on the wire.
func encodedWidth(prop *datatable.Prop) string {
	propCodec, err := propcodec.For(prop.Type)
	if err != nil {
		return "-"
	}
	if width, ok := propCodec.FixedWidth(prop); ok {
		return strconv.Itoa(width)
	}
	switch prop.Type {
	case datatable.TypeInt, datatable.TypeInt64:
		return "varint"
	case datatable.TypeFloat:
		encoding, _ := propcodec.FloatEncodingOf(prop)
		return encoding.String()
	case datatable.TypeVector, datatable.TypeVectorXY:
		element := *prop
		element.Type = datatable.TypeFloat
		return prop.Type.String() + "(" + encodedWidth(&element) + ")"
	case datatable.TypeString:
		return fmt.Sprintf("%d+8n", datatable.MaxStringBits)
	case datatable.TypeArray:
		return fmt.Sprintf("%d+n*%s", propcodec.CountBits(prop), encodedWidth(prop.Element))
	default:
		return "-"
	}
}
