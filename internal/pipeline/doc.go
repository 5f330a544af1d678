// Package pipeline runs the dataset stages.
//
// Prepare samples source images, composites each onto random solid
// backgrounds with a fixed-width worker pool, propagates the metadata rows,
// assigns train/validation/test labels and commits the output table and
// schema. Aggregate commits caller-supplied rows with the input schema
// unchanged. Sample is a dry run of Prepare's input resolution.
//
// Random draws come from one generator per run. Each compositing task gets a
// generator derived from it before dispatch, so a seeded run produces the same
// outputs regardless of worker scheduling.
package pipeline
