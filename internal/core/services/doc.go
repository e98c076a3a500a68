// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexUpdater builds and maintains the vector store; Retriever answers
// questions from it. Services are pure Go with no CGO.
package services
