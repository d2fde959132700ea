// Package social posts finished artifacts to the TikTok accounts a job
// requested. It runs inside the uploading state after the storage publish,
// looping over the requested account ids: load the stored account, ensure
// a fresh access token, submit a pull-from-URL publish, and record the
// outcome. One account's failure never aborts the others or the job; every
// outcome lands in the job output's publish list. Jobs that did not request
// publishing, and deployments without TikTok credentials, skip the stage.
package social
