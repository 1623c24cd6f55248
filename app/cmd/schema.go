package cmd

import (
	"fmt"

	"github.com/stelaras36/JobTracker/app/persistence"
)

// SchemaCommand prints json schema of the persisted jobs list
type SchemaCommand struct {
	CommonOpts
}

// Execute is the entry point for "schema" command
func (sc *SchemaCommand) Execute(_ []string) error {
	schema, err := persistence.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(sc.out(), string(schema))
	return err
}
