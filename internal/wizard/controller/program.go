// internal/wizard/controller/program.go
package controller

import (
	"context"

	"admissions-wizard/internal/models"
)

// ProgramFetcher looks a program up by id.
type ProgramFetcher interface {
	FetchProgramByID(ctx context.Context, id string) (*models.Program, error)
}

type FetchStatus string

const (
	FetchIdle    FetchStatus = "idle"
	FetchLoading FetchStatus = "loading"
	FetchLoaded  FetchStatus = "loaded"
	FetchFailed  FetchStatus = "failed"
)

// FetchToken identifies one in-flight fetch. A result carrying an outdated
// token is dropped.
type FetchToken uint64

type programState struct {
	status     FetchStatus
	programID  string
	program    *models.Program
	err        error
	generation FetchToken
}

// invalidate drops any in-flight fetch. A loaded program is kept.
func (p *programState) invalidate() {
	p.generation++
	if p.status == FetchLoading {
		p.status = FetchIdle
	}
}

func (p *programState) reset() {
	p.generation++
	p.status = FetchIdle
	p.program = nil
	p.err = nil
	p.programID = ""
}

func (p *programState) resolved() bool {
	return p.status == FetchLoaded || p.status == FetchFailed
}

// StartProgramFetch begins a fetch for the record's program. needed is false
// when the program is already loaded for the current id.
func (c *Controller) StartProgramFetch() (token FetchToken, programID string, needed bool) {
	id := c.record.ProgramID
	if c.program.status == FetchLoaded && c.program.programID == id {
		return c.program.generation, id, false
	}
	c.program.generation++
	c.program.status = FetchLoading
	c.program.programID = id
	c.program.err = nil
	c.program.program = nil
	return c.program.generation, id, true
}

// ResolveProgramFetch applies a fetch result. It reports false and changes
// nothing when token is stale.
func (c *Controller) ResolveProgramFetch(token FetchToken, program *models.Program, err error) bool {
	if token != c.program.generation || c.program.status != FetchLoading {
		c.logger.Debug("stale program fetch ignored", map[string]interface{}{
			"token":   uint64(token),
			"current": uint64(c.program.generation),
		})
		return false
	}
	if err != nil {
		c.program.status = FetchFailed
		c.program.err = err
		c.logger.Warn("program fetch failed", map[string]interface{}{
			"programId": c.program.programID,
			"error":     err,
		})
		return true
	}
	c.program.status = FetchLoaded
	c.program.program = program
	c.logger.Info("program loaded", map[string]interface{}{"programId": c.program.programID})
	return true
}

// LoadProgram fetches the program synchronously. It is a no-op when the
// program is already loaded. The returned error is the fetch error, which is
// also kept as the step's error state.
func (c *Controller) LoadProgram(ctx context.Context, fetcher ProgramFetcher) error {
	token, id, needed := c.StartProgramFetch()
	if !needed {
		return nil
	}
	program, err := fetcher.FetchProgramByID(ctx, id)
	c.ResolveProgramFetch(token, program, err)
	return err
}

// Program returns the loaded program, the fetch status and the last fetch error.
func (c *Controller) Program() (*models.Program, FetchStatus, error) {
	return c.program.program, c.program.status, c.program.err
}
