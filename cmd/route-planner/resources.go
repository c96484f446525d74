package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/route-planner/internal/models"
)

func (c *cli) routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Маршруты",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Мои маршруты",
			Args:  cobra.NoArgs,
			RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
				routes, err := c.api.Routes.List(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(routes)
			}),
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Маршрут по id",
			Args:  cobra.ExactArgs(1),
			RunE: c.protected(func(cmd *cobra.Command, args []string) error {
				id, err := idArg(args)
				if err != nil {
					return err
				}
				route, err := c.api.Routes.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.print(route)
			}),
		},
		c.routesGenerateCmd(),
		c.routesCreateCmd(),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Удалить маршрут",
			Args:  cobra.ExactArgs(1),
			RunE: c.protected(func(cmd *cobra.Command, args []string) error {
				id, err := idArg(args)
				if err != nil {
					return err
				}
				if err := c.api.Routes.Delete(cmd.Context(), id); err != nil {
					return err
				}
				c.printf("Маршрут %d удалён\n", id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "optimize ID",
			Short: "Оптимизировать порядок точек",
			Args:  cobra.ExactArgs(1),
			RunE: c.protected(func(cmd *cobra.Command, args []string) error {
				id, err := idArg(args)
				if err != nil {
					return err
				}
				route, err := c.api.Routes.Optimize(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.print(route)
			}),
		},
		&cobra.Command{
			Use:   "favorites",
			Short: "Избранные маршруты",
			Args:  cobra.NoArgs,
			RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
				routes, err := c.api.Routes.Favorites(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(routes)
			}),
		},
		&cobra.Command{
			Use:   "favorite ID",
			Short: "Добавить в избранное или убрать",
			Args:  cobra.ExactArgs(1),
			RunE: c.protected(func(cmd *cobra.Command, args []string) error {
				id, err := idArg(args)
				if err != nil {
					return err
				}
				fav, err := c.api.Routes.ToggleFavorite(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"id": id, "is_favorite": fav})
			}),
		},
	)

	return cmd
}

func (c *cli) routesGenerateCmd() *cobra.Command {
	var in models.GenerateRouteInput

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Сгенерировать маршрут",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			route, err := c.api.Routes.Generate(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.print(route)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "route name")
	f.StringVar(&in.Description, "description", "", "description")
	f.Float64Var(&in.DurationHours, "hours", 4, "duration in hours")
	f.StringVar(&in.GeneratorType, "type", models.GeneratorHybrid, "generator: hybrid|llm|algorithmic")
	f.BoolVar(&in.UseLLM, "llm", false, "use LLM descriptions")

	return cmd
}

func (c *cli) routesCreateCmd() *cobra.Command {
	var (
		in          models.RouteInput
		attractions string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Создать маршрут вручную",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			ids, err := parseIDs(attractions)
			if err != nil {
				return fmt.Errorf("--attractions: %w", err)
			}
			in.Attractions = ids

			route, err := c.api.Routes.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.print(route)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "route name")
	f.StringVar(&in.Description, "description", "", "description")
	f.Float64Var(&in.DurationHours, "hours", 0, "duration in hours")
	f.BoolVar(&in.IsPublic, "public", false, "make route public")
	f.StringVar(&attractions, "attractions", "", "comma-separated attraction ids")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *cli) attractionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attractions",
		Short: "Достопримечательности",
	}

	var filter models.AttractionFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "Каталог",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			page, err := c.api.Attractions.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return c.print(page.Results)
		}),
	}
	list.Flags().StringVar(&filter.Search, "search", "", "search by name")
	list.Flags().StringVar(&filter.Category, "category", "", "category")
	list.Flags().IntVar(&filter.Page, "page", 0, "page number")

	var lat, lng, radius float64
	nearby := &cobra.Command{
		Use:   "nearby",
		Short: "Рядом с точкой",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			items, err := c.api.Attractions.Nearby(cmd.Context(), lat, lng, radius)
			if err != nil {
				return err
			}
			return c.print(items)
		}),
	}
	nearby.Flags().Float64Var(&lat, "lat", 0, "latitude")
	nearby.Flags().Float64Var(&lng, "lng", 0, "longitude")
	nearby.Flags().Float64Var(&radius, "radius", 5, "radius, km")
	_ = nearby.MarkFlagRequired("lat")
	_ = nearby.MarkFlagRequired("lng")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "get ID",
			Short: "Достопримечательность по id",
			Args:  cobra.ExactArgs(1),
			RunE: c.protected(func(cmd *cobra.Command, args []string) error {
				id, err := idArg(args)
				if err != nil {
					return err
				}
				a, err := c.api.Attractions.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.print(a)
			}),
		},
		nearby,
	)

	return cmd
}

func (c *cli) analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Аналитика",
	}

	var limit int
	popular := &cobra.Command{
		Use:   "popular",
		Short: "Популярные маршруты",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			routes, err := c.api.Analytics.PopularRoutes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return c.print(routes)
		}),
	}
	popular.Flags().IntVar(&limit, "limit", 10, "how many routes")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "dashboard",
			Short: "Сводка: статистика и графики",
			Args:  cobra.NoArgs,
			RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
				d, err := c.api.Analytics.Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(d)
			}),
		},
		popular,
	)

	return cmd
}
