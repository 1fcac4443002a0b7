package engine

import (
	"context"
	"fmt"
	"io"
	"slices"
)

type modelLister interface {
	Model() string
	ListModels(ctx context.Context) ([]string, error)
}

// EnsureReady checks that e can serve requests and writes a status line per
// engine to w. The rule engine is always ready; a remote engine must list
// its configured model. With a fallback engine a remote failure is only
// reported, since the rule engine still answers.
func EnsureReady(ctx context.Context, e Engine, w io.Writer) error {
	if f, ok := e.(*fallbackEngine); ok {
		if err := EnsureReady(ctx, f.primary, w); err != nil {
			fmt.Fprintf(w, "reasoner %s: unavailable (%v), %s will answer\n", f.primary.Name(), err, f.secondary.Name())
		}
		return EnsureReady(ctx, f.secondary, w)
	}

	lister, ok := e.(modelLister)
	if !ok {
		fmt.Fprintf(w, "reasoner %s: ready\n", e.Name())
		return nil
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("reasoner %s is not reachable: %w", e.Name(), err)
	}
	if !slices.Contains(models, lister.Model()) {
		return fmt.Errorf("reasoner %s: model %q is not offered by the provider", e.Name(), lister.Model())
	}
	fmt.Fprintf(w, "reasoner %s: ready\n", e.Name())
	return nil
}
