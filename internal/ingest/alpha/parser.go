// Package alpha imports Alpha Progression CSV exports as completed
// historical sessions.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Workout is one session block of the export.
type Workout struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is one numbered exercise of a workout. Warmups are kept apart
// from working sets because they never count toward volume.
type Exercise struct {
	Position   int
	Name       string
	Equipment  string
	TargetReps int
	Warmups    []Set
	Sets       []Set
}

// Set is a single row of the export. RIR is -1 when the set was not rated.
type Set struct {
	Number         int
	WeightKg       float64
	BodyweightPlus bool
	Reps           int
	RIR            float64
}

var (
	// "Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
	workoutHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d{1,2}:\d{2})\s+h";"(.*)"$`)

	// "1. Hack Squats · Machine · 8 reps · 2 dropsets";"WU1 · 37,5 kg · 9 reps"
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(?:\s+·[^"]*)?"(?:;"(.*)")?$`)

	// 1;102,5;6;0
	setRowRe = regexp.MustCompile(`^(\d+);([^;]+);(\d+);([^;]+)$`)

	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	durationRe = regexp.MustCompile(`^(?:(\d+):(\d{2})\s*hr?|(\d+)\s*min)$`)
)

const columnHeader = "#;KG;REPS;RIR"

// Parse reads an export whose timestamps are in UTC.
func Parse(r io.Reader) ([]Workout, error) {
	return ParseIn(r, time.UTC)
}

// ParseIn reads an export whose wall-clock timestamps are in loc.
// Unrecognized lines are ignored.
func ParseIn(r io.Reader, loc *time.Location) ([]Workout, error) {
	p := &parser{loc: loc}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := p.line(strings.TrimSpace(sc.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeWorkout()
	return p.workouts, nil
}

type parser struct {
	loc      *time.Location
	workouts []Workout
	workout  *Workout
	exercise *Exercise
}

func (p *parser) line(s string) error {
	switch {
	case s == "":
		p.closeWorkout()
	case s == columnHeader:
	case workoutHeaderRe.MatchString(s):
		return p.startWorkout(workoutHeaderRe.FindStringSubmatch(s))
	case exerciseHeaderRe.MatchString(s):
		return p.startExercise(exerciseHeaderRe.FindStringSubmatch(s))
	case setRowRe.MatchString(s):
		return p.addSet(setRowRe.FindStringSubmatch(s))
	}
	return nil
}

func (p *parser) startWorkout(m []string) error {
	p.closeWorkout()
	at, err := parseStartedAt(m[2], p.loc)
	if err != nil {
		return err
	}
	p.workout = &Workout{Name: m[1], StartedAt: at, Duration: parseDuration(m[3])}
	return nil
}

func (p *parser) startExercise(m []string) error {
	if p.workout == nil {
		return fmt.Errorf("exercise %q outside a workout", m[2])
	}
	p.closeExercise()
	pos, _ := strconv.Atoi(m[1])
	reps, _ := strconv.Atoi(m[4])
	p.exercise = &Exercise{
		Position:   pos,
		Name:       strings.TrimSpace(m[2]),
		Equipment:  strings.TrimSpace(m[3]),
		TargetReps: reps,
		Warmups:    parseWarmups(m[5]),
	}
	return nil
}

func (p *parser) addSet(m []string) error {
	if p.exercise == nil {
		return fmt.Errorf("set row outside an exercise")
	}
	num, _ := strconv.Atoi(m[1])
	weight, bw := parseWeight(m[2])
	reps, _ := strconv.Atoi(m[3])
	p.exercise.Sets = append(p.exercise.Sets, Set{
		Number:         num,
		WeightKg:       weight,
		BodyweightPlus: bw,
		Reps:           reps,
		RIR:            parseDecimal(m[4]),
	})
	return nil
}

func (p *parser) closeExercise() {
	if p.workout != nil && p.exercise != nil {
		p.workout.Exercises = append(p.workout.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) closeWorkout() {
	p.closeExercise()
	if p.workout != nil {
		p.workouts = append(p.workouts, *p.workout)
	}
	p.workout = nil
}

func parseStartedAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing start time %q: %w", s, err)
	}
	return t, nil
}

// parseDuration understands "1:02 hr" and "45 min". Anything else is 0.
func parseDuration(s string) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	if m[3] != "" {
		mins, _ := strconv.Atoi(m[3])
		return time.Duration(mins) * time.Minute
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{Number: num, WeightKg: weight, BodyweightPlus: bw, Reps: reps, RIR: -1})
	}
	return sets
}

// parseWeight reads "102,5" or the bodyweight-plus form "+35".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(rest), true
	}
	return parseDecimal(s), false
}

// parseDecimal reads comma or dot decimals. Malformed input is 0.
func parseDecimal(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
