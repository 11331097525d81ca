// Package domain contains the core business entities, value objects, and
// domain logic of the application: audit tasks, performance reports, task
// outcomes, and batch summaries. It represents the heart of the system,
// independent of any specific engine, transport, or storage mechanism.
package domain
