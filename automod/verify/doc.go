// Registry of chat members who have been challenged and not yet resolved.
//
// A member is "pending" from the moment their challenge question is posted until either a correct answer or the verification deadline resolves them. Resolution always goes through Registry.Take, which reads and removes an entry in one step: when an answer and the deadline timer race on the same member, exactly one of them observes the entry.
//
// State is in-process only and is lost on restart.
package verify
