package cw

// CharacterDuration returns how long c would take to send under the
// given parameters, including its trailing inter-character gap, in
// microseconds (spec §3 "[EXPANDED] Generator representation/character
// query helpers", grounded in
// unixcw's xcwcp sender duration estimate used to pace playback).
func CharacterDuration(c rune, params Parameters) (int64, error) {
	rep, ok := CharToRepresentation(c)
	if !ok {
		return 0, ErrInvalid
	}
	t := timingsFor(params.SpeedWPM, params.Weighting, params.GapUnits)
	var total int64
	for i, sym := range rep {
		if sym == '.' {
			total += t.DotUS
		} else {
			total += t.DashUS
		}
		if i < len(rep)-1 {
			total += t.InterElementUS
		}
	}
	total += t.InterCharacterUS
	return total, nil
}

// StringDuration returns how long s would take to send under the
// given parameters, treating the string's own end as a word boundary
// and a space rune as contributing no tone of its own (the same
// convention EnqueueString uses, so the two durations agree).
func StringDuration(s string, params Parameters) (int64, error) {
	t := timingsFor(params.SpeedWPM, params.Weighting, params.GapUnits)
	runes := []rune(s)
	var total int64
	for i, c := range runes {
		if c == ' ' {
			continue
		}
		rep, ok := CharToRepresentation(c)
		if !ok {
			return 0, ErrInvalid
		}
		for j, sym := range rep {
			if sym == '.' {
				total += t.DotUS
			} else {
				total += t.DashUS
			}
			if j < len(rep)-1 {
				total += t.InterElementUS
			}
		}
		atWordBoundary := i == len(runes)-1 || runes[i+1] == ' '
		if atWordBoundary {
			total += t.InterWordUS
		} else {
			total += t.InterCharacterUS
		}
	}
	return total, nil
}
