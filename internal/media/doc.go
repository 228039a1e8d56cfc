// Package media acquires and renders the audiovisual artifacts the pipeline
// needs: bestaudio extraction from the source link, thumbnail resolution from
// an attachment, a remote URL, or the source's own preview, and the final
// still-image video render. All external tool interaction goes through an
// injectable Executor so tests never spawn processes.
package media
