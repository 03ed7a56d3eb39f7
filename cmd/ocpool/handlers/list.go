package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/provisioning/cluster"
	"github.com/imamik/ocpool/internal/util/async"
)

const statusMissing = "MISSING"

// ClusterRow is one line of the list output.
type ClusterRow struct {
	Name    string
	Status  string
	Phase   string
	Version string
}

// List handles the list command.
//
// It prints every registered cluster with the live status of its stack and
// the phase recorded in its management environment. Stacks that no longer
// exist are shown as missing.
func List(ctx context.Context, g Global) (err error) {
	rt, err := newRuntime(g, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()

	store, err := openRegistry(ctx, rt.cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	rt.closers = append(rt.closers, store)

	names, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(stdout, dimStyle.Render("No clusters registered."))
		return nil
	}

	rows, err := async.Map(ctx, names, 0, rt.clusterRow)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, renderClusterTable(rows))
	return nil
}

func (rt *runtime) clusterRow(ctx context.Context, name string) (ClusterRow, error) {
	row := ClusterRow{Name: name}
	st := rt.stacks.Get(name)
	status, err := st.Status(ctx)
	switch {
	case errors.Is(err, provisioning.ErrStackNotFound):
		row.Status = statusMissing
	case err != nil:
		return row, err
	default:
		row.Status = string(status)
	}

	var md cluster.Metadata
	if err := st.Env().ReadYAML(cluster.MetadataFile, &md); err == nil {
		row.Phase = string(md.Phase)
		row.Version = md.Version
	}
	return row, nil
}

func renderClusterTable(rows []ClusterRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "STATUS", "PHASE", "VERSION").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(titleStyle)
			}
			if col == 1 && row >= 0 && row < len(rows) {
				switch rows[row].Status {
				case string(provisioning.StatusCreateComplete):
					return style.Inherit(okStyle)
				case statusMissing, string(provisioning.StatusCreateFailed):
					return style.Inherit(failedStyle)
				}
			}
			return style
		})
	for _, r := range rows {
		t.Row(r.Name, r.Status, dash(r.Phase), dash(r.Version))
	}
	return t.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
