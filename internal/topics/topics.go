// Package topics holds the curated conversation starter catalog.
package topics

import (
	"errors"
	"math/rand"
	"sync"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Topic is one catalog entry: a stable slug, a display name and the
// starter lines an assistant can open with.
type Topic struct {
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Starters []string `json:"starters"`
}

var catalog = []Topic{
	{
		Slug: "daily_life",
		Name: "Daily Life & Routines",
		Starters: []string{
			"Tell me about your typical morning routine.",
			"What did you do last weekend?",
			"How do you usually spend your free time?",
			"What's your favorite part of the day and why?",
		},
	},
	{
		Slug: "travel",
		Name: "Travel & Places",
		Starters: []string{
			"Have you traveled anywhere interesting recently?",
			"If you could visit any country, where would you go?",
			"Tell me about your hometown.",
			"What's the most beautiful place you've ever seen?",
		},
	},
	{
		Slug: "food",
		Name: "Food & Cooking",
		Starters: []string{
			"What's your favorite food and why?",
			"Can you cook? What's your specialty?",
			"Tell me about a traditional dish from your country.",
			"What did you have for lunch today?",
		},
	},
	{
		Slug: "hobbies",
		Name: "Hobbies & Interests",
		Starters: []string{
			"What do you like to do in your free time?",
			"Have you picked up any new hobbies recently?",
			"What's something you're passionate about?",
			"Do you prefer indoor or outdoor activities?",
		},
	},
	{
		Slug: "work_study",
		Name: "Work & Study",
		Starters: []string{
			"What do you do for work or study?",
			"What's the most challenging part of your job/studies?",
			"What are your career goals?",
			"How do you stay motivated at work or school?",
		},
	},
	{
		Slug: "future_goals",
		Name: "Goals & Dreams",
		Starters: []string{
			"What are you hoping to achieve this year?",
			"If you could learn any new skill, what would it be?",
			"Where do you see yourself in five years?",
			"What's one goal you're working towards right now?",
		},
	},
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(rand.Int63()))
)

// List returns the catalog in its fixed order.
func List() []Topic {
	out := make([]Topic, len(catalog))
	copy(out, catalog)
	return out
}

// Slugs returns every topic slug in catalog order.
func Slugs() []string {
	out := make([]string, len(catalog))
	for i, t := range catalog {
		out[i] = t.Slug
	}
	return out
}

// RandomStarter picks one starter line. An empty slug draws from the
// whole catalog; an unknown slug is an error.
func RandomStarter(slug string) (string, error) {
	if slug == "" {
		var all []string
		for _, t := range catalog {
			all = append(all, t.Starters...)
		}
		return pick(all), nil
	}
	for _, t := range catalog {
		if t.Slug == slug {
			return pick(t.Starters), nil
		}
	}
	return "", ErrUnknownTopic
}

func pick(pool []string) string {
	rngMu.Lock()
	defer rngMu.Unlock()
	return pool[rng.Intn(len(pool))]
}
