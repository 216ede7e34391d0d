// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"

	"github.com/poiesic/answerit/core"
)

func printOutcome(outcome *core.SearchOutcome) {
	fmt.Println(outcome.Answer.Text)
	fmt.Println()

	if len(outcome.Answer.KeyPoints) > 0 {
		fmt.Println("Key points:")
		for _, point := range outcome.Answer.KeyPoints {
			fmt.Printf("  - %s\n", point)
		}
		fmt.Println()
	}

	if len(outcome.Answer.Sources) > 0 {
		fmt.Println("Sources:")
		for _, source := range outcome.Answer.Sources {
			fmt.Printf("  - %s\n", source)
		}
		fmt.Println()
	}

	fmt.Printf("Confidence: %.2f\n", outcome.Answer.Confidence)
	fmt.Printf("Segments:   %d in %d stages\n",
		len(outcome.Segmentation.Segments), outcome.Segmentation.Graph.StageCount)

	tokens := outcome.Answer.TokensUsed
	escalated := 0
	failed := 0
	for _, result := range outcome.Results {
		tokens += result.TokensUsed
		if result.WasEscalated {
			escalated++
		}
		if !result.Success {
			failed++
		}
	}
	if escalated > 0 {
		fmt.Printf("Escalated:  %d\n", escalated)
	}
	if failed > 0 {
		fmt.Printf("Failed:     %d\n", failed)
	}
	fmt.Printf("Tokens:     %d\n", tokens)
}
