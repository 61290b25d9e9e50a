// Package classify provides the classifiers used by the organizers.
//
// DateClassifier buckets files by the capture month encoded in their name.
// DeviceClassifier downloads each image, reads the EXIF camera model, and
// routes everything not shot on a configured phone into the "other" bucket.
package classify
