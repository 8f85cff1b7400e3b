// Package diagnostics runs an ordered battery of Spotify Web API checks and records a pass/fail report.
//
// # Steps
//
// [Runner] executes five steps in a fixed order:
//
//  1. [Authenticate] (required): fetches the current user profile
//  2. [Search] (required): finds the first artist matching the configured query
//  3. [TopTracks] (required): fetches that artist's top tracks in the configured market
//  4. [AudioFeatures]: looks up audio features for those tracks
//  5. [KnownTrackProbe]: looks up audio features for a fixed, well-known track
//
// Later steps read only what earlier successful steps published to [State]. When a required step
// fails the run stops and the remaining steps are listed in [Report.Skipped]; optional failures are
// recorded and the run continues. [KnownTrackProbe] never reads [State], so comparing it with
// [AudioFeatures] separates artist-specific failures from app-wide ones (see [Report.Notes]).
//
// # Errors
//
// Collaborator errors never escape [Runner.Run]. Each is folded into a [StepResult] with an
// [ErrorKind] chosen by [Classify]. A panic inside a step is recovered as [UnknownError].
//
// # Progress
//
// [Runner.Run] emits a [ProgressUpdate] when each step starts and finishes, and one for each skipped step.
// Sends never block; buffer the channel with [Runner.UpdateCapacity] to receive every update.
package diagnostics
