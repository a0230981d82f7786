package generate

import (
	"fmt"
	"strings"

	"github.com/daggergm/daggergm/model"
)

// candidateSet holds the retrieved content entities a generation request is
// allowed to reference, keyed by what the prompt enumerates them as. Every
// name the model returns must resolve against one of these lists.
type candidateSet struct {
	Adversaries  []*model.ContentEntity
	Environments []*model.ContentEntity
	Classes      []*model.ContentEntity
	Ancestries   []*model.ContentEntity
	Communities  []*model.ContentEntity
	Weapons      []*model.ContentEntity
	Armor        []*model.ContentEntity
}

const scaffoldSystemPrompt = `You are a game master assistant for the Daggerheart tabletop roleplaying game.
You design adventure outlines. Respond only with JSON matching the requested schema.
An outline has 3 to 5 scenes. Each scene has a title, a type (combat, exploration, social or puzzle), and a one-paragraph description.
Scenes must form a coherent arc from introduction to climax.`

const expansionSystemPrompt = `You are a game master assistant for the Daggerheart tabletop roleplaying game.
You expand a single adventure scene into playable detail. Respond only with JSON matching the requested schema.
You may only reference adversaries, environments, classes, ancestries, communities, weapons and armor by the exact names listed in the request.
Never invent content names. Omit a section entirely rather than inventing entries for it.`

func scaffoldUserPrompt(adventure *model.Adventure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an adventure outline titled %q.\n", adventure.Title)
	fmt.Fprintf(&b, "Campaign frame: %s\n", adventure.Frame)
	fmt.Fprintf(&b, "Adventure focus: %s\n", adventure.Focus)
	if adventure.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", adventure.Difficulty)
	}
	if adventure.Stakes != "" {
		fmt.Fprintf(&b, "Stakes: %s\n", adventure.Stakes)
	}
	fmt.Fprintf(&b, "The party has %d players at level %d.\n", adventure.PartySize, adventure.PartyLevel)
	b.WriteString("Produce between 3 and 5 scenes with sequential dramatic build.")
	return b.String()
}

// sceneOutlineUserPrompt asks for a replacement outline for one scene while
// keeping it coherent with the rest of the scaffold.
func sceneOutlineUserPrompt(adventure *model.Adventure, scene *model.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create one replacement scene outline for the adventure %q.\n", adventure.Title)
	fmt.Fprintf(&b, "Campaign frame: %s\n", adventure.Frame)
	fmt.Fprintf(&b, "Adventure focus: %s\n", adventure.Focus)
	if adventure.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", adventure.Difficulty)
	}
	if adventure.Stakes != "" {
		fmt.Fprintf(&b, "Stakes: %s\n", adventure.Stakes)
	}
	b.WriteString("The full current outline is:\n")
	for i := range adventure.Scenes {
		s := &adventure.Scenes[i]
		marker := ""
		if s.ID == scene.ID {
			marker = " (replace this scene)"
		}
		fmt.Fprintf(&b, "%d. %s [%s]%s: %s\n", s.OrderIndex+1, s.Title, s.Type, marker, s.Description)
	}
	fmt.Fprintf(&b, "Replace scene %d with a fresh outline that still fits its position in the arc.", scene.OrderIndex+1)
	return b.String()
}

func regenerateScaffoldUserPrompt(adventure *model.Adventure) string {
	var b strings.Builder
	b.WriteString(scaffoldUserPrompt(adventure))
	locked := lockedScenes(adventure)
	if len(locked) > 0 {
		b.WriteString("\nThe following scenes are locked and must be reproduced verbatim at their positions:\n")
		for _, s := range locked {
			fmt.Fprintf(&b, "%d. %s [%s]: %s\n", s.OrderIndex+1, s.Title, s.Type, s.Description)
		}
	}
	return b.String()
}

func expansionUserPrompt(adventure *model.Adventure, scene *model.Scene, cand *candidateSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expand the following scene of the adventure %q.\n", adventure.Title)
	fmt.Fprintf(&b, "Campaign frame: %s\nAdventure focus: %s\n", adventure.Frame, adventure.Focus)
	fmt.Fprintf(&b, "The party has %d players at level %d.\n\n", adventure.PartySize, adventure.PartyLevel)
	fmt.Fprintf(&b, "Scene: %s [%s]\n%s\n\n", scene.Title, scene.Type, scene.Description)
	b.WriteString("Produce 3 to 5 GM-facing description paragraphs, optionally a read-aloud narration, NPCs, adversaries, one environment, and loot.\n")
	writeCandidateList(&b, "Available adversaries", cand.Adversaries)
	writeCandidateList(&b, "Available environments", cand.Environments)
	writeCandidateList(&b, "Available classes", cand.Classes)
	writeCandidateList(&b, "Available ancestries", cand.Ancestries)
	writeCandidateList(&b, "Available communities", cand.Communities)
	writeCandidateList(&b, "Available weapons", cand.Weapons)
	writeCandidateList(&b, "Available armor", cand.Armor)
	b.WriteString("Reference content only by the exact names above.")
	return b.String()
}

// refineUserPrompt includes the current expansion so the model revises rather
// than restarts.
func refineUserPrompt(adventure *model.Adventure, scene *model.Scene, cand *candidateSet, instruction string) string {
	var b strings.Builder
	b.WriteString(expansionUserPrompt(adventure, scene, cand))
	b.WriteString("\n\nThe scene already has an expansion. Revise it according to this instruction, keeping everything the instruction does not touch:\n")
	fmt.Fprintf(&b, "Instruction: %s\n", instruction)
	if exp := scene.Expansion; exp != nil {
		b.WriteString("Current descriptions:\n")
		for _, d := range exp.Descriptions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		if exp.Narration != nil {
			fmt.Fprintf(&b, "Current narration: %s\n", *exp.Narration)
		}
		for _, npc := range exp.NPCs {
			fmt.Fprintf(&b, "Current NPC: %s (%s)\n", npc.Name, npc.Role)
		}
		for _, adv := range exp.Adversaries {
			fmt.Fprintf(&b, "Current adversary: %s x%d\n", adv.DisplayName, adv.Quantity)
		}
	}
	return b.String()
}

func writeCandidateList(b *strings.Builder, heading string, entities []*model.ContentEntity) {
	if len(entities) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, e := range entities {
		if e.Tier != nil {
			fmt.Fprintf(b, "- %s (tier %d)\n", e.Name, *e.Tier)
		} else {
			fmt.Fprintf(b, "- %s\n", e.Name)
		}
	}
}

func lockedScenes(adventure *model.Adventure) []*model.Scene {
	var out []*model.Scene
	for i := range adventure.Scenes {
		if adventure.Scenes[i].Locked {
			out = append(out, &adventure.Scenes[i])
		}
	}
	return out
}
