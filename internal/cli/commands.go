package cli

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kvgraph/pkg/element"
	"github.com/mesh-intelligence/kvgraph/pkg/query"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <key>",
		Short: "Print an element as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.model(args[0])
			if err != nil {
				return err
			}
			st, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			e, err := m.Find(cmd.Context(), st, args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd, e)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model> <key> <attr=value>...",
		Short: "Create or update an element",
		Long: `Set assigns attribute values to the element stored under key, creating it
when missing, and saves it. Assigning the key attribute renames the element.

Example:
  kvgraph set Person bob mood=happy
  kvgraph set Person bob name=robert`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.model(args[0])
			if err != nil {
				return err
			}
			values, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			st, err := a.open(ctx)
			if err != nil {
				return err
			}

			key := args[1]
			e, err := m.Get(ctx, st, key)
			if err != nil {
				return err
			}
			if e == nil {
				if e, err = m.New(st, nil); err != nil {
					return err
				}
				if _, err := e.Set(m.KeyAttribute().Name, key); err != nil {
					return err
				}
			}
			if err := e.UpdateAttributes(values); err != nil {
				return err
			}
			ok, err := e.Save(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return usageErrorf("%s not saved: %s", m.Name(), strings.Join(e.Errors().Full(), "; "))
			}
			return writeJSON(cmd, e)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <key>",
		Short: "Destroy an element with its indexes and custom attributes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.model(args[0])
			if err != nil {
				return err
			}
			st, err := a.open(ctx)
			if err != nil {
				return err
			}
			e, err := m.Find(ctx, st, args[1])
			if err != nil {
				return err
			}
			if _, err := e.Destroy(ctx); err != nil {
				return err
			}
			return writeJSON(cmd, map[string]string{"model": m.Name(), "deleted": args[1]})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var (
		or     []string
		random bool
	)
	cmd := &cobra.Command{
		Use:   "find <model> [attr=value]...",
		Short: "Query elements through their indexes",
		Long: `Find prints the elements matching every attr=value filter. Each --or flag adds
an alternative group; assignments inside a group are separated by commas.
Without filters every element of the model matches.

Example:
  kvgraph find Person mood=happy
  kvgraph find Person mood=happy --or mood=sad
  kvgraph find Person mood=happy --or mood=calm,role=admin --random`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.model(args[0])
			if err != nil {
				return err
			}
			filters, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			st, err := a.open(ctx)
			if err != nil {
				return err
			}

			c, err := query.Where(m, st, filters)
			if err != nil {
				return err
			}
			for _, group := range or {
				alt, err := parseAssignments(strings.Split(group, ","))
				if err != nil {
					return err
				}
				if c, err = c.OrWhere(alt); err != nil {
					return err
				}
			}

			if random {
				e, err := c.Random(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd, e)
			}
			elems, err := c.Elements(ctx)
			if err != nil {
				return err
			}
			if elems == nil {
				elems = []*element.Element{}
			}
			return writeJSON(cmd, elems)
		},
	}
	cmd.Flags().StringArrayVar(&or, "or", nil, "alternative filter group (attr=value[,attr=value...])")
	cmd.Flags().BoolVar(&random, "random", false, "print one random match instead of all")
	return cmd
}

func newIncrCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "incr <model> <key> <counter> [n]",
		Short: "Increment a counter attribute",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			by := int64(1)
			if len(args) == 4 {
				n, err := strconv.ParseInt(args[3], 10, 64)
				if err != nil {
					return usageErrorf("increment %q is not an integer", args[3])
				}
				by = n
			}
			m, err := a.model(args[0])
			if err != nil {
				return err
			}
			st, err := a.open(ctx)
			if err != nil {
				return err
			}
			e, err := m.Find(ctx, st, args[1])
			if err != nil {
				return err
			}
			c, err := e.Counter(args[2])
			if err != nil {
				return err
			}
			v, err := c.Increment(ctx, by)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"model":   m.Name(),
				"key":     e.Key(),
				"counter": c.Name(),
				"value":   v,
			})
		},
	}
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete temporary query keys left by failed queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := query.SweepTempKeys(cmd.Context(), st)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]int64{"deleted": n})
		},
	}
}

// parseAssignments turns attr=value arguments into a value map. A repeated
// name keeps the last value.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Mark(errors.Newf("expected attr=value, got %q", arg), errUsage)
		}
		out[name] = value
	}
	return out, nil
}
