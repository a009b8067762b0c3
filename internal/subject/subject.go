package subject

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"subjectchat/internal/store"
)

// Profile is the structured teaching configuration that conditions the system
// prompt: either a built-in subject, a file override, a persisted custom
// subject, or the generic fallback when the reference resolves to nothing.
type Profile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	TeachingStyle string `json:"teaching_style"`
	IsCustom      bool   `json:"is_custom"`
}

func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		"math": {
			ID:          "math",
			Name:        "Math",
			Description: "Step-by-step explanations, worked examples, and practice problems for mathematics.",
			TeachingStyle: "Explain concepts step by step, show intermediate steps, and ask the learner to attempt parts " +
				"of the solution before revealing everything.",
		},
		"physics": {
			ID:          "physics",
			Name:        "Physics",
			Description: "Intuitive explanations of physical concepts with equations and real-world examples.",
			TeachingStyle: "Relate formulas to physical intuition, use diagrams conceptually, and check the learner's " +
				"understanding with simple thought experiments.",
		},
		"chemistry": {
			ID:            "chemistry",
			Name:          "Chemistry",
			Description:   "Help with chemical reactions, stoichiometry, and conceptual understanding.",
			TeachingStyle: "Use clear notation, explain each reaction step, and highlight safety-relevant facts.",
		},
		"history": {
			ID:          "history",
			Name:        "History",
			Description: "Contextual narratives of historical events with attention to sources and bias.",
			TeachingStyle: "Provide timelines, causes and effects, and multiple viewpoints; encourage critical thinking " +
				"about sources.",
		},
		"writing": {
			ID:          "writing",
			Name:        "English / Writing",
			Description: "Guidance on structure, clarity, and style for essays and other writing tasks.",
			TeachingStyle: "Focus on structure, clarity, and revision. Ask clarifying questions before rewriting large " +
				"sections; avoid doing full exam essays for the learner.",
		},
	}
}

// Override is one per-id configuration record from the subjects file.
// Non-empty fields replace the built-in values; empty fields keep them.
type Override struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	TeachingStyle string `json:"teaching_style"`
}

// Resolver maps subject references to profiles. The table is built once at
// startup and read-only afterwards; custom subjects are re-fetched from the
// store on every request.
type Resolver struct {
	profiles map[string]Profile
	store    store.Store
	logger   *zap.Logger
}

func NewResolver(st store.Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		profiles: defaultProfiles(),
		store:    st,
		logger:   logger,
	}
}

// LoadOverrides merges per-id records from a JSON file (an array of Override)
// into the built-in table. Unknown ids add new profiles.
func (r *Resolver) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read subjects file %s: %w", path, err)
	}

	var overrides []Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse subjects file %s: %w", path, err)
	}

	for _, ov := range overrides {
		id := strings.ToLower(strings.TrimSpace(ov.ID))
		if id == "" {
			continue
		}
		profile := r.profiles[id]
		profile.ID = id
		if ov.Name != "" {
			profile.Name = ov.Name
		}
		if ov.Description != "" {
			profile.Description = ov.Description
		}
		if ov.TeachingStyle != "" {
			profile.TeachingStyle = ov.TeachingStyle
		}
		r.profiles[id] = profile
	}
	return nil
}

// BuiltinProfiles returns the merged built-in table sorted by id.
func (r *Resolver) BuiltinProfiles() []Profile {
	profiles := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles
}

// Resolve maps a subject reference to a profile. It never fails: unknown ids,
// missing custom records, and storage errors all degrade to a generic
// fallback so tutoring can continue with the bare persona.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) Profile {
	if pk, ok := store.ParseCustomSubjectRef(subjectID); ok {
		subj, err := r.store.GetCustomSubject(ctx, pk)
		if err != nil {
			if err != store.ErrNotFound && err != store.ErrUnavailable {
				r.logger.Warn("custom subject lookup failed, using fallback",
					zap.String("subject_id", subjectID), zap.Error(err))
			}
			return fallbackProfile(subjectID)
		}
		return Profile{
			ID:            subjectID,
			Name:          subj.Name,
			Description:   subj.Description,
			TeachingStyle: subj.TeachingStyle,
			IsCustom:      true,
		}
	}

	if p, ok := r.profiles[strings.ToLower(subjectID)]; ok {
		return p
	}
	return fallbackProfile(subjectID)
}

// FromDescriptor synthesizes a profile from an inline custom subject supplied
// directly in a request, without any persistence lookup.
func FromDescriptor(name, description, teachingStyle string) Profile {
	return Profile{
		Name:          name,
		Description:   description,
		TeachingStyle: teachingStyle,
		IsCustom:      true,
	}
}

func fallbackProfile(subjectID string) Profile {
	return Profile{ID: subjectID}
}
