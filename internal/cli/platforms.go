package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// platformsCommand lists the configured platform profile lists.
func (c *CLI) platformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platforms with a profile list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			p, err := c.newPipeline(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = p.transformer.Close() }()

			for _, name := range p.registry.Platforms() {
				profiles, err := p.registry.Profiles(name)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "%s\t%d images\n", name, len(profiles))
			}
			return nil
		},
	}
}
