package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/session"
)

// ErrUsage is returned when a command is called with the wrong arguments.
var ErrUsage = errors.New("usage")

// Builtins registers the search commands bound to s.
func Builtins(r *Registry, s *session.Session) error {
	cmds := []struct {
		def  Definition
		exec Executor
	}{
		{Definition{"brand", ":brand a,b", "filter by brands (empty clears)"}, brand(s)},
		{Definition{"price", ":price min max", "filter by price, - leaves a bound unset"}, price(s)},
		{Definition{"reset", ":reset", "clear all filters"}, reset(s)},
		{Definition{"apply", ":apply", "re-run the current search with the filters"}, apply(s)},
		{Definition{"image", ":image <path>", "search by photo"}, image(s)},
		{Definition{"detail", ":detail <hash>", "show a product and similar items"}, detail(s)},
		{Definition{"more", ":more", "load the next page"}, more(s)},
		{Definition{"help", ":help", "list commands"}, func(context.Context, Call) (Result, error) {
			return Result{Message: r.Help()}, nil
		}},
	}
	for _, c := range cmds {
		if err := r.Register(c.def, c.exec); err != nil {
			return err
		}
	}
	return nil
}

func brand(s *session.Session) Executor {
	return func(_ context.Context, call Call) (Result, error) {
		f := s.Filters()
		f.Brands = catalog.ParseBrands(strings.ReplaceAll(call.Raw, " ", ","))
		if err := s.ApplyFilters(f); err != nil {
			return Result{}, err
		}
		return filtersResult(s), nil
	}
}

func price(s *session.Session) Executor {
	return func(_ context.Context, call Call) (Result, error) {
		if len(call.Args) > 2 {
			return Result{}, fmt.Errorf("%w: :price min max", ErrUsage)
		}
		bounds := [2]string{"-", "-"}
		copy(bounds[:], call.Args)

		lo, err := catalog.ParsePrice(bounds[0])
		if err != nil {
			return Result{}, err
		}
		hi, err := catalog.ParsePrice(bounds[1])
		if err != nil {
			return Result{}, err
		}

		f := s.Filters()
		f.PriceMin, f.PriceMax = lo, hi
		if err := s.ApplyFilters(f); err != nil {
			return Result{}, err
		}
		return filtersResult(s), nil
	}
}

func reset(s *session.Session) Executor {
	return func(context.Context, Call) (Result, error) {
		s.ResetFilters()
		return filtersResult(s), nil
	}
}

func apply(s *session.Session) Executor {
	return func(ctx context.Context, _ Call) (Result, error) {
		if err := s.ReissueWithFilters(ctx); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%d results", len(s.Results()))}, nil
	}
}

func image(s *session.Session) Executor {
	return func(ctx context.Context, call Call) (Result, error) {
		if call.Raw == "" {
			return Result{}, fmt.Errorf("%w: :image <path>", ErrUsage)
		}
		img, err := catalog.LoadImage(call.Raw)
		if err != nil {
			return Result{}, err
		}
		if err := s.StartImageSearch(ctx, img); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%d results for %s", len(s.Results()), img.Name)}, nil
	}
}

func detail(s *session.Session) Executor {
	return func(ctx context.Context, call Call) (Result, error) {
		if len(call.Args) != 1 {
			return Result{}, fmt.Errorf("%w: :detail <hash>", ErrUsage)
		}
		d, err := s.FetchDetail(ctx, call.Args[0])
		if err != nil {
			return Result{}, err
		}
		if d.Product == nil {
			return Result{Message: "no product for " + call.Args[0], Detail: &d}, nil
		}
		return Result{Detail: &d}, nil
	}
}

func more(s *session.Session) Executor {
	return func(ctx context.Context, _ Call) (Result, error) {
		if err := s.LoadMore(ctx); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%d results", len(s.Results()))}, nil
	}
}

func filtersResult(s *session.Session) Result {
	return Result{Message: "filters: " + s.Filters().String()}
}
