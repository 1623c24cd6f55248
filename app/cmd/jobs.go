package cmd

import (
	"fmt"
	"strings"

	"github.com/stelaras36/JobTracker/app/tracker"
)

// ListCommand with command line flags
type ListCommand struct {
	Status string `short:"s" long:"status" default:"All" description:"status filter, case-insensitive, All for no filtering"`
	Query  string `short:"q" long:"query" description:"case-insensitive search in title and company"`

	CommonOpts
}

// Execute is the entry point for "list" command, prints matching jobs with their positions
func (lc *ListCommand) Execute(_ []string) error {
	return lc.withSession(func(sess *session) error {
		all := sess.store.List()
		positions := make(map[string]int, len(all))
		for i, e := range all {
			positions[e.ID] = i + 1
		}

		res := sess.store.FilterAndSearch(tracker.ParseFilter(lc.Status), lc.Query)
		if len(res) == 0 {
			_, err := fmt.Fprintln(lc.out(), "no jobs found")
			return err
		}
		for _, e := range res {
			if _, err := fmt.Fprintf(lc.out(), "%d. %s\n", positions[e.ID], e); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddCommand with command line flags
type AddCommand struct {
	Title   string `short:"t" long:"title" required:"true" description:"job title"`
	Company string `short:"c" long:"company" required:"true" description:"company name"`
	Status  string `short:"s" long:"status" description:"initial status, Wishlist if empty"`

	CommonOpts
}

// Execute is the entry point for "add" command, new job goes to the first position
func (ac *AddCommand) Execute(_ []string) error {
	var status tracker.Status
	if strings.TrimSpace(ac.Status) != "" {
		st, err := tracker.ParseStatus(ac.Status)
		if err != nil {
			return err
		}
		status = st
	}

	return ac.withSession(func(sess *session) error {
		e, err := sess.store.Add(ac.Title, ac.Company, status)
		if err != nil {
			return fmt.Errorf("can't add job: %w", err)
		}
		_, err = fmt.Fprintf(ac.out(), "added 1. %s\n", e)
		return err
	})
}

// StatusCommand with positional args
type StatusCommand struct {
	Args struct {
		Position int    `positional-arg-name:"position" description:"job position as printed by list"`
		Status   string `positional-arg-name:"status" description:"new status"`
	} `positional-args:"yes" required:"yes"`

	CommonOpts
}

// Execute is the entry point for "status" command
func (sc *StatusCommand) Execute(_ []string) error {
	status, err := parseStatusArg(sc.Args.Status)
	if err != nil {
		return err
	}

	return sc.withSession(func(sess *session) error {
		e, err := sess.store.At(sc.Args.Position)
		if err != nil {
			return err
		}
		upd, err := sess.store.UpdateStatus(e.ID, status)
		if err != nil {
			return fmt.Errorf("can't update status: %w", err)
		}
		_, err = fmt.Fprintf(sc.out(), "updated %d. %s\n", sc.Args.Position, upd)
		return err
	})
}

// DeleteCommand with positional args
type DeleteCommand struct {
	Args struct {
		Position int `positional-arg-name:"position" description:"job position as printed by list"`
	} `positional-args:"yes" required:"yes"`

	CommonOpts
}

// Execute is the entry point for "delete" command
func (dc *DeleteCommand) Execute(_ []string) error {
	return dc.withSession(func(sess *session) error {
		e, err := sess.store.At(dc.Args.Position)
		if err != nil {
			return err
		}
		if _, err := sess.store.Delete(e.ID); err != nil {
			return fmt.Errorf("can't delete job: %w", err)
		}
		_, err = fmt.Fprintf(dc.out(), "deleted %s\n", e)
		return err
	})
}
