package session

import (
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

// treeDiff lists what a history step changed that the store has to hear about.
type treeDiff struct {
	lessons     []string
	moduleOrder bool
	lessonOrder []string
}

func (d treeDiff) empty() bool {
	return len(d.lessons) == 0 && !d.moduleOrder && len(d.lessonOrder) == 0
}

func diffTrees(before, after []model.Module) treeDiff {
	var d treeDiff
	d.moduleOrder = !sameOrder(mutate.OrderedModuleIDs(before), mutate.OrderedModuleIDs(after))

	for _, m := range after {
		for _, l := range m.Lessons {
			prev, ok := mutate.FindLesson(before, l.ID)
			if ok && !mutate.SameContent(prev, l) {
				d.lessons = append(d.lessons, l.ID)
			}
		}
		prevIDs := mutate.OrderedLessonIDs(before, m.ID)
		if prevIDs != nil && !sameOrder(prevIDs, mutate.OrderedLessonIDs(after, m.ID)) {
			d.lessonOrder = append(d.lessonOrder, m.ID)
		}
	}
	return d
}
