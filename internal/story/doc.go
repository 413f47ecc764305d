// Package story defines the story records kept in the offline cache.
//
// A Record is what the local store persists and returns. A Draft is the
// candidate handed to the store on save: it models key presence explicitly
// (see Field) so that "absent", "present as null" and "present with a value"
// stay distinguishable all the way from a decoded JSON document to the
// store's validation step.
package story
