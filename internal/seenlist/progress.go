package seenlist

import (
	"time"
)

func (it *MediaItem) season(seasonID int) *Season {
	for i := range it.Seasons {
		if it.Seasons[i].ID == seasonID {
			return &it.Seasons[i]
		}
	}
	return nil
}

func (se *Season) episode(episodeID int) *Episode {
	for i := range se.Episodes {
		if se.Episodes[i].ID == episodeID {
			return &se.Episodes[i]
		}
	}
	return nil
}

func countEpisodes(it *MediaItem) (total, watched int) {
	for i := range it.Seasons {
		for j := range it.Seasons[i].Episodes {
			total++
			if it.Seasons[i].Episodes[j].Watched {
				watched++
			}
		}
	}
	return total, watched
}

// recalcWatchState recomputes watchProgress from the episode flags and keeps
// the item-level watched flag in sync with it: reaching 100% marks the series
// watched, dropping below 100% clears the flag again.
func recalcWatchState(it *MediaItem, now time.Time) {
	total, watched := countEpisodes(it)
	if total == 0 {
		return
	}
	progress := float64(watched) / float64(total) * 100
	it.WatchProgress = &progress

	if watched == total {
		if !it.Watched {
			it.Watched = true
			it.WatchedAt = &now
		}
	} else if it.Watched {
		it.Watched = false
		it.WatchedAt = nil
	}
}

// applyEpisodeFlag sets an episode's watched state. Re-marking an already
// watched episode keeps its original timestamp.
func applyEpisodeFlag(ep *Episode, watched bool, now time.Time) {
	switch {
	case watched && !ep.Watched:
		ep.Watched = true
		ep.WatchedAt = &now
	case !watched:
		ep.Watched = false
		ep.WatchedAt = nil
	}
}

func setEpisodeWatched(it *MediaItem, seasonID, episodeID int, watched bool, now time.Time) error {
	se := it.season(seasonID)
	if se == nil {
		return errNotFound("season not found")
	}
	ep := se.episode(episodeID)
	if ep == nil {
		return errNotFound("episode not found")
	}
	applyEpisodeFlag(ep, watched, now)
	recalcWatchState(it, now)
	return nil
}

func setSeasonWatched(it *MediaItem, seasonID int, watched bool, now time.Time) error {
	se := it.season(seasonID)
	if se == nil {
		return errNotFound("season not found")
	}
	for i := range se.Episodes {
		applyEpisodeFlag(&se.Episodes[i], watched, now)
	}
	recalcWatchState(it, now)
	return nil
}

// mergeSeasons replaces the item's season data with a fresh copy from the
// metadata provider while restoring the watched state of episodes that were
// already tracked, keyed by season and episode id.
func mergeSeasons(it *MediaItem, fresh []Season, now time.Time) {
	prev := it.Seasons
	for i := range fresh {
		var old *Season
		for j := range prev {
			if prev[j].ID == fresh[i].ID {
				old = &prev[j]
				break
			}
		}
		for j := range fresh[i].Episodes {
			ep := &fresh[i].Episodes[j]
			ep.Watched = false
			ep.WatchedAt = nil
			if old != nil {
				if prevEp := old.episode(ep.ID); prevEp != nil {
					ep.Watched = prevEp.Watched
					ep.WatchedAt = prevEp.WatchedAt
				}
			}
		}
	}
	it.Seasons = fresh
	recalcWatchState(it, now)
}
