// Package config loads the stage config document and the stage input
// descriptor.
//
// The config is a flat JSON object. The Prepare stage requires ColorRangeMin,
// ColorRangeMax, ImageSampleCount, BackgroundPerImage, TestThreshhold and
// ValThreshhold; numeric keys may be given as numbers or numeric strings.
// Workers, Seed, ImagePattern, MatchPolicy, SplitGranularity and OnDecodeError
// are optional.
//
// Workers and Seed can be overridden through AUGMENT_WORKERS and AUGMENT_SEED,
// optionally loaded from a .env file with LoadEnv.
package config
