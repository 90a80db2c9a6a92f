package artifact

import "strings"

// RoadmapItem is a single checkbox entry under a roadmap phase.
type RoadmapItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// RoadmapPhase groups roadmap items under a Markdown heading.
type RoadmapPhase struct {
	Name  string        `json:"name"`
	Items []RoadmapItem `json:"items,omitempty"`
}

// Roadmap is the parsed view of the roadmap artifact.
type Roadmap struct {
	Phases []RoadmapPhase `json:"phases"`
}

// ParseRoadmap parses the roadmap document: Markdown headings become
// phases, checkbox lines beneath them become items. Everything else is
// ignored.
func ParseRoadmap(data []byte) *Roadmap {
	roadmap := &Roadmap{}

	for _, line := range strings.Split(string(data), "\n") {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			roadmap.Phases = append(roadmap.Phases, RoadmapPhase{
				Name: strings.TrimSpace(m[1]),
			})
			continue
		}

		m := taskLine.FindStringSubmatch(line)
		if m == nil || len(roadmap.Phases) == 0 {
			continue
		}

		current := &roadmap.Phases[len(roadmap.Phases)-1]
		text := strings.TrimSpace(m[2] + " " + strings.SplitN(m[3], "|", 2)[0])
		current.Items = append(current.Items, RoadmapItem{
			Text: strings.TrimSpace(text),
			Done: boxStatus(m[1]) == TaskDone,
		})
	}

	return roadmap
}

// Complete reports whether the roadmap has at least one item and every
// item is checked off.
func (r *Roadmap) Complete() bool {
	items := 0
	for _, phase := range r.Phases {
		for _, item := range phase.Items {
			items++
			if !item.Done {
				return false
			}
		}
	}
	return items > 0
}

// ItemCounts returns the number of done items and the total item count.
func (r *Roadmap) ItemCounts() (done, total int) {
	for _, phase := range r.Phases {
		for _, item := range phase.Items {
			total++
			if item.Done {
				done++
			}
		}
	}
	return done, total
}
