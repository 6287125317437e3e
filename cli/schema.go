package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v2"

	"go.viam.com/lightscan/structuredlight"
)

// SettingsAction prints the settings a run would use after applying the file and overrides.
func SettingsAction(c *cli.Context) error {
	settings, _, err := runSettings(c)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

// SchemaAction prints the JSON schemas of the run settings and the calibration file.
func SchemaAction(c *cli.Context) error {
	schemas := map[string]*jsonschema.Schema{
		"settings":    jsonschema.Reflect(&Settings{}),
		"calibration": jsonschema.Reflect(&structuredlight.Calibration{}),
	}
	out, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}
