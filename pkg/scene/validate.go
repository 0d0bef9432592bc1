package scene

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
)

// ValidationSeverity indicates whether a finding blocks the run or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the run
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // "mesh cube", "job slice", or empty for scene-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
	Line     int                // script line of the job, if known
}

func (e ValidationError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Severity)
	if e.Line > 0 {
		prefix += fmt.Sprintf(" line %d:", e.Line)
	}
	if e.Subject == "" {
		return fmt.Sprintf("%s %s", prefix, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", prefix, e.Subject, e.Message)
}

// ValidationResult splits findings into blocking errors and warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether the scene can be run.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs every check over the scene and returns the findings in a
// stable order. It never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateMeshNames(s)...)
	errs = append(errs, validateMeshData(s)...)
	errs = append(errs, validateJobNames(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateFlags(s)...)
	errs = append(errs, validateUsage(s)...)
	return errs
}

// Check runs Validate and separates errors from warnings.
func Check(s *Scene) ValidationResult {
	var r ValidationResult
	for _, e := range Validate(s) {
		if e.Severity == SeverityError {
			r.Errors = append(r.Errors, e)
		} else {
			r.Warnings = append(r.Warnings, e)
		}
	}
	return r
}

func meshSubject(name string) string { return "mesh " + name }
func jobSubject(name string) string  { return "job " + name }

// validateMeshNames reports empty and duplicate mesh names.
func validateMeshNames(s *Scene) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, m := range s.meshes {
		if m.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("mesh %d has no name", i),
				Severity: SeverityError,
			})
			continue
		}
		if seen[m.Name] {
			errs = append(errs, ValidationError{
				Subject:  meshSubject(m.Name),
				Message:  "duplicate mesh name",
				Severity: SeverityError,
			})
		}
		seen[m.Name] = true
	}
	return errs
}

// validateMeshData checks buffers and flags empty meshes.
func validateMeshData(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, m := range s.meshes {
		if m.Released() {
			errs = append(errs, ValidationError{
				Subject:  meshSubject(m.Name),
				Message:  "mesh has been released",
				Severity: SeverityError,
			})
			continue
		}
		if m.IsEmpty() {
			errs = append(errs, ValidationError{
				Subject:  meshSubject(m.Name),
				Message:  "mesh is empty",
				Severity: SeverityWarning,
			})
			continue
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Subject:  meshSubject(m.Name),
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateJobNames reports empty and duplicate job names.
func validateJobNames(s *Scene) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, j := range s.jobs {
		if j.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("job %d has no name", i),
				Severity: SeverityError,
				Line:     j.Line,
			})
			continue
		}
		if seen[j.Name] {
			errs = append(errs, ValidationError{
				Subject:  jobSubject(j.Name),
				Message:  "duplicate job name",
				Severity: SeverityError,
				Line:     j.Line,
			})
		}
		seen[j.Name] = true
	}
	return errs
}

// validateReferences checks that every job names two distinct, existing
// meshes. A source that is not closed is allowed but warned about, since
// fragments of an open source cannot be sealed.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, j := range s.jobs {
		subject := jobSubject(j.Name)
		for _, ref := range []struct{ role, name string }{{"source", j.Source}, {"cut", j.Cut}} {
			if ref.name == "" {
				errs = append(errs, ValidationError{
					Subject:  subject,
					Message:  fmt.Sprintf("no %s mesh given", ref.role),
					Severity: SeverityError,
					Line:     j.Line,
				})
				continue
			}
			if s.Mesh(ref.name) == nil {
				errs = append(errs, ValidationError{
					Subject:  subject,
					Message:  fmt.Sprintf("%s mesh %q not found", ref.role, ref.name),
					Severity: SeverityError,
					Line:     j.Line,
				})
			}
		}
		if j.Source != "" && j.Source == j.Cut {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("mesh %q cannot cut itself", j.Source),
				Severity: SeverityError,
				Line:     j.Line,
			})
		}
		if src := s.Mesh(j.Source); src != nil && !src.Released() && !src.IsEmpty() && !src.IsManifold() {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  fmt.Sprintf("source mesh %q is not closed; fragments will not be sealed", j.Source),
				Severity: SeverityWarning,
				Line:     j.Line,
			})
		}
	}
	return errs
}

// validateFlags checks that each job's flags form a valid configuration.
func validateFlags(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, j := range s.jobs {
		if _, err := j.Config(kernel.DefaultConfig()); err != nil {
			errs = append(errs, ValidationError{
				Subject:  jobSubject(j.Name),
				Message:  err.Error(),
				Severity: SeverityError,
				Line:     j.Line,
			})
		}
	}
	return errs
}

// validateUsage warns about meshes no job refers to, and about scenes
// with nothing to run.
func validateUsage(s *Scene) []ValidationError {
	var errs []ValidationError
	if len(s.jobs) == 0 {
		errs = append(errs, ValidationError{
			Message:  "scene has no cut jobs",
			Severity: SeverityWarning,
		})
		return errs
	}
	used := make(map[string]bool)
	for _, j := range s.jobs {
		used[j.Source] = true
		used[j.Cut] = true
	}
	for _, m := range s.meshes {
		if m.Name != "" && !used[m.Name] {
			errs = append(errs, ValidationError{
				Subject:  meshSubject(m.Name),
				Message:  "mesh is not used by any job",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
